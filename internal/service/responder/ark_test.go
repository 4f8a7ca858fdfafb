package responder

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	input []*schema.Message
	opts  *model.Options
	reply string
	err   error
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.input = input
	f.opts = model.GetCommonOptions(&model.Options{}, opts...)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools([]*schema.ToolInfo) error { return nil }

func TestArkProviderBuildsTwoMessagePrompt(t *testing.T) {
	ctx := context.Background()
	fake := &fakeChatModel{reply: "Rest when baby rests."}
	provider, err := NewArkProvider(ctx, fake)
	require.NoError(t, err)

	text, err := provider.Complete(ctx, Completion{
		System:      "system {not a variable}",
		User:        "so tired {really}",
		MaxTokens:   150,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Rest when baby rests.", text)

	require.Len(t, fake.input, 2)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Equal(t, "system {not a variable}", fake.input[0].Content)
	assert.Equal(t, schema.User, fake.input[1].Role)
	assert.Equal(t, "so tired {really}", fake.input[1].Content)

	require.NotNil(t, fake.opts.MaxTokens)
	assert.Equal(t, 150, *fake.opts.MaxTokens)
	require.NotNil(t, fake.opts.Temperature)
	assert.InDelta(t, 0.7, *fake.opts.Temperature, 1e-6)
}

func TestArkProviderPropagatesModelError(t *testing.T) {
	ctx := context.Background()
	provider, err := NewArkProvider(ctx, &fakeChatModel{err: errors.New("quota exceeded")})
	require.NoError(t, err)

	_, err = provider.Complete(ctx, Completion{System: "s", User: "u"})
	assert.Error(t, err)
}
