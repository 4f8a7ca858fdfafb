package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momversation/backend/internal/model/chat"
	"github.com/momversation/backend/internal/model/persona"
	"github.com/momversation/backend/internal/service/responder"
	"github.com/momversation/backend/internal/session"
	"github.com/momversation/backend/internal/store"
)

func sequentialIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func newLocalBackend(messages store.MessageStore, resp responder.Responder) *localBackend {
	return &localBackend{store: messages, responder: resp, persona: persona.Default()}
}

func TestRunChatLocal(t *testing.T) {
	messages := store.NewMemoryStore()
	b := newLocalBackend(messages, responder.NewRuleResponder())
	identity := session.NewIdentity(session.NewMemoryStorage(), session.WithGenerator(sequentialIDs("visit-1")))

	in := strings.NewReader("I'm so worried\n\n/topics\n/topic 2\n/quit\n")
	var out bytes.Buffer

	require.NoError(t, runChat(context.Background(), b, identity, in, &out))

	text := out.String()
	assert.Contains(t, text, "Hello beautiful mama!")
	assert.Contains(t, text, "Anxiety is so common")
	assert.Contains(t, text, "4. Self-care tips")
	assert.Contains(t, text, "you> Sleep struggles")
	assert.Contains(t, text, "sleep deprivation is one of the hardest parts")

	persisted, err := messages.List(context.Background(), "visit-1")
	require.NoError(t, err)
	// welcome + two turns
	assert.Len(t, persisted, 5)
}

func TestRunChatResumesVisit(t *testing.T) {
	messages := store.NewMemoryStore()
	b := newLocalBackend(messages, responder.NewRuleResponder())
	storage := session.NewMemoryStorage()

	first := session.NewIdentity(storage, session.WithGenerator(sequentialIDs("visit-1")))
	require.NoError(t, runChat(context.Background(), b, first, strings.NewReader("hello\n"), &bytes.Buffer{}))

	// a later run over the same storage reattaches without a second welcome
	second := session.NewIdentity(storage, session.WithGenerator(sequentialIDs("visit-2")))
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), b, second, strings.NewReader(""), &out))

	persisted, err := messages.List(context.Background(), "visit-1")
	require.NoError(t, err)
	assert.Len(t, persisted, 3)
	assert.Equal(t, 1, strings.Count(out.String(), "Hello beautiful mama!"))
}

func TestRunChatNewVisit(t *testing.T) {
	messages := store.NewMemoryStore()
	b := newLocalBackend(messages, responder.NewRuleResponder())
	identity := session.NewIdentity(session.NewMemoryStorage(), session.WithGenerator(sequentialIDs("visit-1", "visit-2")))

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), b, identity, strings.NewReader("hi\n/new\n"), &out))

	first, _ := messages.List(context.Background(), "visit-1")
	second, _ := messages.List(context.Background(), "visit-2")
	assert.Len(t, first, 3)
	assert.Len(t, second, 1)
}

type flakyResponder struct {
	fail bool
}

func (r *flakyResponder) Generate(_ context.Context, utterance string) (string, error) {
	if r.fail {
		r.fail = false
		return "", errors.New("timeout")
	}
	return "here for you", nil
}

func TestRunChatRetry(t *testing.T) {
	messages := store.NewMemoryStore()
	b := newLocalBackend(messages, &flakyResponder{fail: true})
	identity := session.NewIdentity(nil, session.WithGenerator(sequentialIDs("visit-1")))

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), b, identity, strings.NewReader("hello\n/retry\n/retry\n"), &out))

	text := out.String()
	assert.Contains(t, text, "type /retry to ask again")
	assert.Contains(t, text, "momversation: here for you")
	assert.Contains(t, text, "(nothing to retry)")

	persisted, _ := messages.List(context.Background(), "visit-1")
	require.Len(t, persisted, 3)
	assert.True(t, persisted[1].IsUser)
	assert.False(t, persisted[2].IsUser)
}

func TestPickTopic(t *testing.T) {
	topics := persona.Default().QuickTopics

	got, ok := pickTopic(topics, "1")
	assert.True(t, ok)
	assert.Equal(t, "New mom anxiety", got)

	for _, raw := range []string{"0", "5", "x", ""} {
		_, ok := pickTopic(topics, raw)
		assert.False(t, ok, raw)
	}
}

func TestReportStoreFailure(t *testing.T) {
	var out bytes.Buffer
	report(&out, chat.Turn{}, chat.StoreUnavailable("append", errors.New("refused")))
	assert.Contains(t, out.String(), "/reload")
}

func TestAskCommandWithRules(t *testing.T) {
	t.Setenv("AI_PROVIDER", "rules")
	t.Setenv("STORE_DRIVER", "memory")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"ask", "I'm", "expecting", "twins"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Preparing for motherhood")
}
