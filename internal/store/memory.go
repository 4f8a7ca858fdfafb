package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/momversation/backend/internal/model/chat"
)

// MemoryStore keeps the log in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]chat.Message
	last     time.Time
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]chat.Message),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List implements MessageStore.
func (s *MemoryStore) List(_ context.Context, sessionID string) ([]chat.Message, error) {
	if err := chat.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.messages[sessionID]
	copied := make([]chat.Message, len(stored))
	copy(copied, stored)
	return copied, nil
}

// Append implements MessageStore. CreatedAt never goes backwards even if the
// wall clock does.
func (s *MemoryStore) Append(_ context.Context, msg chat.NewMessage) (chat.Message, error) {
	if err := validateNew(msg); err != nil {
		return chat.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now()
	if createdAt.Before(s.last) {
		createdAt = s.last
	}
	s.last = createdAt

	stored := chat.Message{
		ID:        uuid.NewString(),
		SessionID: msg.SessionID,
		Content:   msg.Content,
		IsUser:    msg.IsUser,
		CreatedAt: createdAt,
	}
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], stored)
	return stored, nil
}

var _ MessageStore = (*MemoryStore)(nil)
