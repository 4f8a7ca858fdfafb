package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/momversation/backend/pkg/logger"
)

// DefaultCleanupInterval is how often idle controllers are swept.
const DefaultCleanupInterval = time.Minute

// Janitor periodically evicts idle controllers from a Registry.
type Janitor struct {
	registry *Registry
	idle     time.Duration
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewJanitor creates a janitor evicting controllers idle for longer than idle.
// A non-positive interval falls back to DefaultCleanupInterval.
func NewJanitor(registry *Registry, idle, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Janitor{registry: registry, idle: idle, interval: interval}
}

// Start launches the sweep loop. It is a no-op when already running.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})
	j.running = true

	go j.run(sweepCtx)
}

// Stop cancels the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	cancel := j.cancel
	done := j.done
	j.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the sweep loop is active.
func (j *Janitor) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *Janitor) run(ctx context.Context) {
	defer func() {
		j.mu.Lock()
		j.running = false
		close(j.done)
		j.mu.Unlock()
	}()

	log := logger.With(zap.String("component", "chat.janitor"))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("janitor stopping")
			return
		case <-ticker.C:
			if removed := j.registry.Evict(j.idle); removed > 0 {
				log.Info("evicted idle sessions", zap.Int("removed", removed), zap.Int("remaining", j.registry.Len()))
			}
		}
	}
}
