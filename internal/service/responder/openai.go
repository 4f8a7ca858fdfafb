package responder

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider builds a provider; baseURL and httpClient are optional.
func NewOpenAIProvider(apiKey, baseURL, model string, httpClient *http.Client) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = openai.GPT4
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, c Completion) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.System},
			{Role: openai.ChatMessageRoleUser, Content: c.User},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
