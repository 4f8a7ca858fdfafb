package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momversation/backend/internal/model/chat"
	chatservice "github.com/momversation/backend/internal/service/chat"
	"github.com/momversation/backend/internal/service/responder"
	"github.com/momversation/backend/internal/store"
)

type frame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

func startServer(t *testing.T, messages store.MessageStore, resp responder.Responder) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	New(chatservice.NewRegistry(messages, resp)).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestWebSocketSendsHistoryOnConnect(t *testing.T) {
	srv := startServer(t, store.NewMemoryStore(), responder.NewRuleResponder())
	conn := dial(t, srv, "abc")

	f := readFrame(t, conn)
	assert.Equal(t, TypeHistory, f.Type)
	assert.Equal(t, "abc", f.SessionID)

	var history []chat.Message
	require.NoError(t, json.Unmarshal(f.Data, &history))
	require.Len(t, history, 1)
	assert.False(t, history[0].IsUser)
}

func TestWebSocketRunsTurn(t *testing.T) {
	messages := store.NewMemoryStore()
	srv := startServer(t, messages, responder.NewRuleResponder())
	conn := dial(t, srv, "abc")
	readFrame(t, conn) // history

	require.NoError(t, conn.WriteJSON(map[string]string{"type": TypeMessage, "content": "I feel so alone"}))

	var types []string
	for {
		f := readFrame(t, conn)
		types = append(types, f.Type)
		if f.Type == TypeBot {
			var bot chat.Message
			require.NoError(t, json.Unmarshal(f.Data, &bot))
			assert.False(t, bot.IsUser)
			assert.NotEmpty(t, bot.Content)
			break
		}
		require.NotEqual(t, TypeError, f.Type)
	}
	assert.Equal(t, []string{TypeUser, TypeComposing, TypeComposing, TypeBot}, types)

	persisted, err := messages.List(context.Background(), "abc")
	require.NoError(t, err)
	assert.Len(t, persisted, 3)
}

func TestWebSocketRejectsBlankContent(t *testing.T) {
	srv := startServer(t, store.NewMemoryStore(), responder.NewRuleResponder())
	conn := dial(t, srv, "abc")
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": TypeMessage, "content": "  "}))
	f := readFrame(t, conn)
	assert.Equal(t, TypeError, f.Type)

	var body struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(f.Data, &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
}

func TestWebSocketUnknownType(t *testing.T) {
	srv := startServer(t, store.NewMemoryStore(), responder.NewRuleResponder())
	conn := dial(t, srv, "abc")
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "audio"}))
	assert.Equal(t, TypeError, readFrame(t, conn).Type)
}

type failingResponder struct{}

func (failingResponder) Generate(context.Context, string) (string, error) {
	return "", errors.New("model offline")
}

func TestWebSocketRetryWithNothingPending(t *testing.T) {
	srv := startServer(t, store.NewMemoryStore(), failingResponder{})
	conn := dial(t, srv, "abc")
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": TypeRetry}))
	f := readFrame(t, conn)
	assert.Equal(t, TypeError, f.Type)
	assert.Contains(t, string(f.Data), "no unanswered user message")
}

type brokenStore struct{}

func (brokenStore) List(context.Context, string) ([]chat.Message, error) {
	return nil, chat.StoreUnavailable("list", errors.New("refused"))
}

func (brokenStore) Append(context.Context, chat.NewMessage) (chat.Message, error) {
	return chat.Message{}, chat.StoreUnavailable("append", errors.New("refused"))
}

func TestWebSocketStoreUnavailableBeforeUpgrade(t *testing.T) {
	srv := startServer(t, brokenStore{}, responder.NewRuleResponder())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/abc"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// flakyStore wraps a memory store, counts reads and can refuse user appends.
type flakyStore struct {
	*store.MemoryStore

	mu         sync.Mutex
	lists      int
	refuseUser bool
}

func (f *flakyStore) List(ctx context.Context, sessionID string) ([]chat.Message, error) {
	f.mu.Lock()
	f.lists++
	f.mu.Unlock()
	return f.MemoryStore.List(ctx, sessionID)
}

func (f *flakyStore) Append(ctx context.Context, msg chat.NewMessage) (chat.Message, error) {
	f.mu.Lock()
	refuse := f.refuseUser && msg.IsUser
	f.mu.Unlock()
	if refuse {
		return chat.Message{}, chat.StoreUnavailable("append", errors.New("refused"))
	}
	return f.MemoryStore.Append(ctx, msg)
}

func (f *flakyStore) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func TestWebSocketBlankContentDoesNotReattachErroredSession(t *testing.T) {
	messages := &flakyStore{MemoryStore: store.NewMemoryStore(), refuseUser: true}
	srv := startServer(t, messages, responder.NewRuleResponder())
	conn := dial(t, srv, "abc")
	readFrame(t, conn)

	// a refused user append leaves the session errored
	require.NoError(t, conn.WriteJSON(map[string]string{"type": TypeMessage, "content": "hello"}))
	assert.Equal(t, TypeError, readFrame(t, conn).Type)
	before := messages.listCount()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": TypeMessage, "content": " \n "}))
	f := readFrame(t, conn)
	assert.Equal(t, TypeError, f.Type)

	var body struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(f.Data, &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
	assert.Equal(t, before, messages.listCount())

	persisted, err := messages.MemoryStore.List(context.Background(), "abc")
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}
