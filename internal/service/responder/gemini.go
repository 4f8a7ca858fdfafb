package responder

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // optional, for proxies and tests
	HTTPClient *http.Client
}

// GeminiProvider calls the Gemini generateContent API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini API client.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash-001"
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiProvider{client: client, model: cfg.Model}, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return "gemini" }

// Complete implements Provider.
func (p *GeminiProvider) Complete(ctx context.Context, c Completion) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(c.User), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(c.System, genai.RoleUser),
		MaxOutputTokens:   int32(c.MaxTokens),
		Temperature:       genai.Ptr(c.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
