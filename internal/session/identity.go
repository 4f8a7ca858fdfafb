package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/momversation/backend/pkg/logger"
)

// DefaultKey is the storage slot holding the current visit's session id.
const DefaultKey = "momversation-session-id"

// Identity hands out one stable session id per client visit.
//
// The id is read from Storage on first use and generated when absent. If the
// storage cannot be reached the id lives only in this process.
type Identity struct {
	storage Storage
	key     string
	newID   func() string

	mu sync.Mutex
	id string
}

// Option configures an Identity.
type Option func(*Identity)

// WithKey overrides the storage slot name.
func WithKey(key string) Option {
	return func(i *Identity) {
		if key != "" {
			i.key = key
		}
	}
}

// WithGenerator overrides id generation; used by tests.
func WithGenerator(fn func() string) Option {
	return func(i *Identity) {
		if fn != nil {
			i.newID = fn
		}
	}
}

// NewIdentity creates an Identity over storage. A nil storage behaves like
// unavailable storage.
func NewIdentity(storage Storage, opts ...Option) *Identity {
	i := &Identity{
		storage: storage,
		key:     DefaultKey,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Get returns the visit's session id, creating and persisting it on first call.
func (i *Identity) Get(ctx context.Context) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.id != "" {
		return i.id
	}

	if i.storage != nil {
		stored, ok, err := i.storage.Get(ctx, i.key)
		switch {
		case err != nil:
			logger.L().Warn("session storage unavailable, using process-local id", zap.Error(err))
		case ok && stored != "":
			i.id = stored
			return i.id
		}
	}

	i.id = i.newID()
	i.persist(ctx)
	return i.id
}

// Reset discards the current id and starts a new visit.
func (i *Identity) Reset(ctx context.Context) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.id = i.newID()
	i.persist(ctx)
	return i.id
}

func (i *Identity) persist(ctx context.Context) {
	if i.storage == nil {
		return
	}
	if err := i.storage.Set(ctx, i.key, i.id); err != nil {
		logger.L().Warn("failed to persist session id, it will not survive a restart", zap.Error(err))
	}
}
