package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/momversation/backend/internal/model/chat"
	"github.com/momversation/backend/pkg/logger"
)

// SupabaseConfig holds Supabase connection configuration.
type SupabaseConfig struct {
	URL     string
	APIKey  string
	Table   string        // Default: messages
	Timeout time.Duration // Default: 10 seconds
}

// SupabaseStore implements MessageStore over the messages relation
// (id, session_id, content, is_user, created_at). The database assigns id and
// created_at.
type SupabaseStore struct {
	client  *postgrest.Client
	table   string
	timeout time.Duration
}

type messageRow struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	CreatedAt time.Time `json:"created_at"`
}

type insertRow struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	IsUser    bool   `json:"is_user"`
}

// NewSupabaseStore creates a new Supabase-backed store.
func NewSupabaseStore(cfg SupabaseConfig) (*SupabaseStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	if cfg.Table == "" {
		cfg.Table = "messages"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	// supabase.Client keeps its PostgREST client private, so the REST client is
	// built here with the same path and auth headers to bound its transport.
	client := postgrest.NewClient(strings.TrimRight(cfg.URL, "/")+supabase.REST_URL, "public", map[string]string{
		"Authorization": "Bearer " + cfg.APIKey,
		"apikey":        cfg.APIKey,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", client.ClientError)
	}
	client.Transport.Parent = newTimeoutTransport(cfg.Timeout)

	return &SupabaseStore{
		client:  client,
		table:   cfg.Table,
		timeout: cfg.Timeout,
	}, nil
}

// timeoutTransport bounds each request, body read included, so an abandoned
// call cannot outlive the store timeout.
type timeoutTransport struct {
	base    http.RoundTripper
	timeout time.Duration
}

func newTimeoutTransport(timeout time.Duration) *timeoutTransport {
	return &timeoutTransport{
		base:    http.DefaultTransport.(*http.Transport).Clone(),
		timeout: timeout,
	}
}

func (t *timeoutTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// List implements MessageStore.
func (s *SupabaseStore) List(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if err := chat.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	var rows []messageRow
	err := s.execute(ctx, func() error {
		_, err := s.client.From(s.table).
			Select("*", "", false).
			Eq("session_id", sessionID).
			Order("created_at", &postgrest.OrderOpts{Ascending: true}).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		logger.WithSession(sessionID).Error("failed to list messages", zap.Error(err))
		return nil, chat.StoreUnavailable("list", err)
	}

	messages := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.toMessage())
	}
	sortByCreatedAt(messages)
	return messages, nil
}

// Append implements MessageStore. The returned record is the row the database
// handed back, not a local echo.
func (s *SupabaseStore) Append(ctx context.Context, msg chat.NewMessage) (chat.Message, error) {
	if err := validateNew(msg); err != nil {
		return chat.Message{}, err
	}

	var row messageRow
	err := s.execute(ctx, func() error {
		_, err := s.client.From(s.table).
			Insert(insertRow{SessionID: msg.SessionID, Content: msg.Content, IsUser: msg.IsUser}, false, "", "representation", "").
			Single().
			ExecuteTo(&row)
		return err
	})
	if err != nil {
		logger.WithSession(msg.SessionID).Error("failed to append message",
			zap.Bool("is_user", msg.IsUser), zap.Int("length", len(msg.Content)), zap.Error(err))
		return chat.Message{}, chat.StoreUnavailable("append", err)
	}
	if row.ID == "" {
		return chat.Message{}, chat.StoreUnavailable("append", fmt.Errorf("insert returned no row"))
	}

	return row.toMessage(), nil
}

// execute runs a blocking PostgREST call bounded by ctx and the store timeout.
// The call itself is bounded by the transport, so its goroutine exits within
// the timeout. On timeout the request may still land; callers reconcile with List.
func (s *SupabaseStore) execute(ctx context.Context, call func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- call()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r messageRow) toMessage() chat.Message {
	return chat.Message{
		ID:        r.ID,
		SessionID: r.SessionID,
		Content:   r.Content,
		IsUser:    r.IsUser,
		CreatedAt: r.CreatedAt,
	}
}

// Compile-time check that SupabaseStore implements MessageStore
var _ MessageStore = (*SupabaseStore)(nil)
