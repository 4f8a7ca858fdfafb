package responder

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/momversation/backend/internal/model/chat"
	"github.com/momversation/backend/internal/model/persona"
	"github.com/momversation/backend/pkg/logger"
)

// Generation parameters for the remote model: short replies, moderately varied.
const (
	DefaultMaxTokens   = 150
	DefaultTemperature = float32(0.7)
)

var errEmptyCompletion = errors.New("provider returned no candidate text")

// Completion is one system + user prompt with bounded generation parameters.
type Completion struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Provider is an external chat-completion service.
type Provider interface {
	Name() string
	Complete(ctx context.Context, c Completion) (string, error)
}

// RemoteResponder delegates to a Provider with a fixed system prompt.
// It performs no retries; timeouts come from the provider's transport.
type RemoteResponder struct {
	provider    Provider
	system      string
	maxTokens   int
	temperature float32
}

// RemoteOption configures a RemoteResponder.
type RemoteOption func(*RemoteResponder)

// WithSystemPrompt overrides the system instruction.
func WithSystemPrompt(system string) RemoteOption {
	return func(r *RemoteResponder) {
		r.system = system
	}
}

// WithGenerationParams overrides the output bound and sampling temperature.
func WithGenerationParams(maxTokens int, temperature float32) RemoteOption {
	return func(r *RemoteResponder) {
		if maxTokens > 0 {
			r.maxTokens = maxTokens
		}
		r.temperature = temperature
	}
}

// NewRemoteResponder wraps provider.
func NewRemoteResponder(provider Provider, opts ...RemoteOption) *RemoteResponder {
	r := &RemoteResponder{
		provider:    provider,
		system:      BuildSystemPrompt(persona.Default()),
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate implements Responder. Provider errors, timeouts and blank output
// all surface as chat.ErrGenerationUnavailable.
func (r *RemoteResponder) Generate(ctx context.Context, utterance string) (string, error) {
	if err := chat.ValidateContent(utterance); err != nil {
		return "", err
	}

	text, err := r.provider.Complete(ctx, Completion{
		System:      r.system,
		User:        utterance,
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		logger.L().Warn("completion failed", zap.String("provider", r.provider.Name()), zap.Error(err))
		return "", chat.GenerationUnavailable(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		logger.L().Warn("completion was empty", zap.String("provider", r.provider.Name()))
		return "", chat.GenerationUnavailable(errEmptyCompletion)
	}

	logger.L().Debug("generated response", zap.String("provider", r.provider.Name()), zap.Int("length", len(text)))
	return text, nil
}

var _ Responder = (*RemoteResponder)(nil)
