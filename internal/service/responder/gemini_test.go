package responder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Breathe, mama."}]}}]}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	provider, err := NewGeminiProvider(ctx, GeminiConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	text, err := provider.Complete(ctx, Completion{System: "sys", User: "help", MaxTokens: 150, Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "Breathe, mama.", text)
}

func TestGeminiProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"unavailable","status":"UNAVAILABLE"}}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	provider, err := NewGeminiProvider(ctx, GeminiConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = provider.Complete(ctx, Completion{System: "sys", User: "help", MaxTokens: 150, Temperature: 0.7})
	assert.Error(t, err)
}
