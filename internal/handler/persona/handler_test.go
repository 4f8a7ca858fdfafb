package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/momversation/backend/internal/model/persona"
)

func TestGetPersonaIncludesQuickTopics(t *testing.T) {
	r := chi.NewRouter()
	New(persona.Default()).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/persona", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var got persona.Persona
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != persona.Default().ID {
		t.Fatalf("expected persona %s, got %s", persona.Default().ID, got.ID)
	}
	if len(got.QuickTopics) != 4 {
		t.Fatalf("expected 4 quick topics, got %v", got.QuickTopics)
	}
}
