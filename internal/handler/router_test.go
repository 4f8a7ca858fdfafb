package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/momversation/backend/internal/model/persona"
	chatservice "github.com/momversation/backend/internal/service/chat"
	"github.com/momversation/backend/internal/service/responder"
	"github.com/momversation/backend/internal/store"
)

func newTestRouter() http.Handler {
	r, _ := newTestRouterWithStore()
	return r
}

func newTestRouterWithStore() (http.Handler, *store.MemoryStore) {
	messages := store.NewMemoryStore()
	registry := chatservice.NewRegistry(messages, responder.NewRuleResponder())
	return NewRouter(persona.Default(), registry), messages
}

func TestHealthz(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRouterConversationFlow(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/messages",
		strings.NewReader(`{"sessionId":"flow","content":"I'm pregnant and nervous"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS headers on api responses")
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/messages/flow", nil))
	var list []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(list))
	}
}

func TestRouterStreamRequiresMessage(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/stream/abc", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestRouterStreamBlankMessageLeavesStoreUntouched(t *testing.T) {
	r, messages := newTestRouterWithStore()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/stream/fresh?message=%20%20", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "event:") {
		t.Fatalf("expected no sse events, got %s", resp.Body.String())
	}
	stored, err := messages.List(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected empty store, got %d messages", len(stored))
	}
}

func TestRouterStream(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/stream/abc?message=help+me+sleep", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "event: bot") {
		t.Fatalf("expected bot event, got %s", resp.Body.String())
	}
}
