package responder

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ArkProvider runs completions through an eino chain: chat template -> chat model.
// Any eino ChatModel works; production wires the Volcengine Ark model.
type ArkProvider struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkProvider compiles the two-message prompt chain around chatModel.
func NewArkProvider(ctx context.Context, chatModel model.ChatModel) (*ArkProvider, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkProvider{chain: runnable}, nil
}

// Name implements Provider.
func (p *ArkProvider) Name() string { return "ark" }

// Complete implements Provider.
func (p *ArkProvider) Complete(ctx context.Context, c Completion) (string, error) {
	input := map[string]any{
		"system": c.System,
		"query":  c.User,
	}

	response, err := p.chain.Invoke(ctx, input, compose.WithChatModelOption(
		model.WithMaxTokens(c.MaxTokens),
		model.WithTemperature(c.Temperature),
	))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil {
		return "", nil
	}
	return response.Content, nil
}
