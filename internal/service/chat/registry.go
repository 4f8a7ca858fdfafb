package chat

import (
	"context"
	"sync"
	"time"

	"github.com/momversation/backend/internal/model/chat"
	"github.com/momversation/backend/internal/service/responder"
	"github.com/momversation/backend/internal/store"
)

// Registry hands out one Controller per session id. Sessions share no mutable
// state, so different sessions never wait on each other.
type Registry struct {
	store     store.MessageStore
	responder responder.Responder
	opts      []Option

	mu          sync.Mutex
	controllers map[string]*registryEntry
	now         func() time.Time
}

type registryEntry struct {
	controller *Controller
	lastUsed   time.Time
}

// NewRegistry creates a registry whose controllers share the store, responder and options.
func NewRegistry(messages store.MessageStore, resp responder.Responder, opts ...Option) *Registry {
	return &Registry{
		store:       messages,
		responder:   resp,
		opts:        opts,
		controllers: make(map[string]*registryEntry),
		now:         time.Now,
	}
}

// Store exposes the underlying message store for read-only endpoints.
func (r *Registry) Store() store.MessageStore { return r.store }

// Get returns the session's controller, creating it in the Loading state.
func (r *Registry) Get(sessionID string) (*Controller, error) {
	if err := chat.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.controllers[sessionID]
	if !ok {
		e = &registryEntry{controller: NewController(sessionID, r.store, r.responder, r.opts...)}
		r.controllers[sessionID] = e
	}
	e.lastUsed = r.now()
	return e.controller, nil
}

// Attached returns the session's controller, attaching it first when it has
// not been loaded yet or is recovering from a store failure.
func (r *Registry) Attached(ctx context.Context, sessionID string) (*Controller, error) {
	c, err := r.Get(sessionID)
	if err != nil {
		return nil, err
	}

	switch c.State() {
	case StateLoading, StateErrored:
		if _, err := c.Attach(ctx); err != nil {
			return c, err
		}
	}
	return c, nil
}

// Len reports how many sessions have a controller.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// Evict drops controllers unused for longer than idle. Controllers with a turn
// or attach in flight are kept. The store stays authoritative, so an evicted
// session is simply re-attached on its next request.
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.controllers {
		if e.lastUsed.After(cutoff) || e.controller.busy() {
			continue
		}
		delete(r.controllers, id)
		removed++
	}
	return removed
}
