package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/momversation/backend/internal/config"
	"github.com/momversation/backend/internal/model/chat"
)

// MessageStore is the append-only, session-partitioned message log.
//
// Implementations own id and timestamp assignment. Every backend failure is
// reported as chat.ErrStoreUnavailable; an empty session is an empty slice.
type MessageStore interface {
	// List returns the session's messages ordered by CreatedAt ascending,
	// ties kept in store insertion order.
	List(ctx context.Context, sessionID string) ([]chat.Message, error)

	// Append persists one message and returns the stored record.
	Append(ctx context.Context, msg chat.NewMessage) (chat.Message, error)
}

// New builds the store selected by configuration.
func New(cfg config.StoreConfig) (MessageStore, error) {
	switch cfg.Driver {
	case config.StoreDriverMemory, "":
		return NewMemoryStore(), nil
	case config.StoreDriverSupabase:
		return NewSupabaseStore(SupabaseConfig{
			URL:     cfg.SupabaseURL,
			APIKey:  cfg.SupabaseKey,
			Table:   cfg.Table,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func validateNew(msg chat.NewMessage) error {
	if err := chat.ValidateSessionID(msg.SessionID); err != nil {
		return err
	}
	return chat.ValidateContent(msg.Content)
}

func sortByCreatedAt(messages []chat.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
}
