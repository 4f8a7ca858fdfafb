// Package responder produces bot replies. Two interchangeable variants share
// the Responder contract: a deterministic keyword matcher that never fails and
// a remote generative model behind a Provider.
package responder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/momversation/backend/internal/config"
	"github.com/momversation/backend/internal/model/persona"
)

// Responder turns one non-empty user utterance into reply text.
type Responder interface {
	Generate(ctx context.Context, utterance string) (string, error)
}

// New builds the responder selected by configuration.
func New(ctx context.Context, cfg config.AIConfig, p persona.Persona) (Responder, error) {
	if !cfg.Remote() {
		return NewRuleResponder(), nil
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%s provider credentials missing", cfg.Provider)
	}

	var (
		provider Provider
		err      error
	)
	switch cfg.Provider {
	case config.ProviderArk:
		chatModel, modelErr := cfg.NewChatModel(ctx)
		if modelErr != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", modelErr)
		}
		provider, err = NewArkProvider(ctx, chatModel)
	case config.ProviderOpenAI:
		provider = NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, &http.Client{Timeout: cfg.Timeout})
	case config.ProviderGemini:
		provider, err = NewGeminiProvider(ctx, GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			HTTPClient: &http.Client{Timeout: cfg.Timeout},
		})
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewRemoteResponder(provider, WithSystemPrompt(BuildSystemPrompt(p))), nil
}
