package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/momversation/backend/internal/client"
	"github.com/momversation/backend/internal/model/chat"
	"github.com/momversation/backend/internal/model/persona"
	chatService "github.com/momversation/backend/internal/service/chat"
	"github.com/momversation/backend/internal/service/responder"
	"github.com/momversation/backend/internal/session"
	"github.com/momversation/backend/internal/store"
	"github.com/momversation/backend/pkg/logger"
)

// conversation is one session seen from the terminal, either against a local
// controller or the HTTP API.
type conversation interface {
	SessionID() string
	Attach(ctx context.Context) ([]chat.Message, error)
	Send(ctx context.Context, content string) (chat.Turn, error)
	Retry(ctx context.Context) (chat.Turn, error)
	Topics(ctx context.Context) []string
}

// backend opens conversations for session ids.
type backend interface {
	Open(sessionID string, typing io.Writer) conversation
	History(ctx context.Context, sessionID string) ([]chat.Message, error)
}

func newBackend(ctx context.Context, opts *options) (backend, error) {
	if opts.server != "" {
		return &remoteBackend{
			client: client.New(opts.server, &http.Client{Timeout: opts.timeout}),
		}, nil
	}

	messages, err := store.New(opts.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open message store: %w", err)
	}

	companion := persona.Default()
	resp, err := responder.New(ctx, opts.cfg.AI, companion)
	if err != nil {
		return nil, fmt.Errorf("create responder: %w", err)
	}

	return &localBackend{
		store:     messages,
		responder: resp,
		persona:   companion,
		delay:     opts.delay,
	}, nil
}

func newIdentity(opts *options) (*session.Identity, func()) {
	cfg := opts.cfg.Session
	idOpts := []session.Option{session.WithKey(cfg.Key)}

	if cfg.RedisURL == "" {
		return session.NewIdentity(session.NewMemoryStorage(), idOpts...), func() {}
	}

	storage, err := session.NewRedisStorageFromURL(cfg.RedisURL, opts.scope, cfg.TTL)
	if err != nil {
		logger.L().Warn("invalid REDIS_URL, session id will not outlive this process", zap.Error(err))
		return session.NewIdentity(nil, idOpts...), func() {}
	}
	return session.NewIdentity(storage, idOpts...), func() { _ = storage.Close() }
}

type localBackend struct {
	store     store.MessageStore
	responder responder.Responder
	persona   persona.Persona
	delay     time.Duration
}

func (b *localBackend) Open(sessionID string, typing io.Writer) conversation {
	controller := chatService.NewController(sessionID, b.store, b.responder,
		chatService.WithResponseDelay(b.delay),
		chatService.WithWelcomeText(b.persona.OpeningLine),
		chatService.WithComposingHook(typingIndicator(typing)),
	)
	return &localConversation{controller: controller, persona: b.persona}
}

func (b *localBackend) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return b.store.List(ctx, sessionID)
}

type localConversation struct {
	controller *chatService.Controller
	persona    persona.Persona
}

func (c *localConversation) SessionID() string { return c.controller.SessionID() }

func (c *localConversation) Attach(ctx context.Context) ([]chat.Message, error) {
	return c.controller.Attach(ctx)
}

func (c *localConversation) Send(ctx context.Context, content string) (chat.Turn, error) {
	return c.controller.Send(ctx, content)
}

func (c *localConversation) Retry(ctx context.Context) (chat.Turn, error) {
	return c.controller.Retry(ctx)
}

func (c *localConversation) Topics(context.Context) []string { return c.persona.QuickTopics }

type remoteBackend struct {
	client *client.Client
}

func (b *remoteBackend) Open(sessionID string, typing io.Writer) conversation {
	return &remoteConversation{client: b.client, sessionID: sessionID, typing: typingIndicator(typing)}
}

func (b *remoteBackend) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return b.client.Messages(ctx, sessionID)
}

type remoteConversation struct {
	client    *client.Client
	sessionID string
	typing    func(bool)
}

func (c *remoteConversation) SessionID() string { return c.sessionID }

func (c *remoteConversation) Attach(ctx context.Context) ([]chat.Message, error) {
	s, err := c.client.Attach(ctx, c.sessionID)
	if err != nil {
		return nil, err
	}
	return s.Messages, nil
}

func (c *remoteConversation) Send(ctx context.Context, content string) (chat.Turn, error) {
	c.typing(true)
	defer c.typing(false)
	return c.client.Send(ctx, c.sessionID, content)
}

func (c *remoteConversation) Retry(ctx context.Context) (chat.Turn, error) {
	c.typing(true)
	defer c.typing(false)
	return c.client.Retry(ctx, c.sessionID)
}

func (c *remoteConversation) Topics(ctx context.Context) []string {
	p, err := c.client.Persona(ctx)
	if err != nil {
		return persona.Default().QuickTopics
	}
	return p.QuickTopics
}

func typingIndicator(w io.Writer) func(bool) {
	return func(composing bool) {
		if w == nil {
			return
		}
		if composing {
			fmt.Fprint(w, "momversation is typing...\r")
			return
		}
		fmt.Fprint(w, "                          \r")
	}
}
