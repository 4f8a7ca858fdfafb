package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/momversation/backend/internal/model/chat"
	"github.com/momversation/backend/internal/model/persona"
	"github.com/momversation/backend/internal/service/responder"
	"github.com/momversation/backend/internal/store"
	"github.com/momversation/backend/pkg/logger"
)

// State is the controller's position in the turn state machine.
type State string

const (
	StateLoading          State = "loading"
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting_response"
	StateErrored          State = "errored"
)

// Controller orchestrates turns for one session.
//
// The local log only ever holds records the store confirmed. One turn runs at
// a time; a second Send or Retry fails fast with ErrTurnInProgress.
type Controller struct {
	sessionID string
	store     store.MessageStore
	responder responder.Responder
	welcome   string
	delay     time.Duration
	composing func(bool)
	log       *zap.Logger

	// turn is held for the whole of Attach, Send and Retry.
	turn sync.Mutex

	mu       sync.RWMutex
	state    State
	messages []chat.Message
	lastErr  error
	// welcomed is the welcome message this controller appended, if any.
	welcomed *chat.Message
}

// Option configures a Controller.
type Option func(*Controller)

// WithResponseDelay adds a cosmetic pause before each reply so clients can show
// a composing indicator. Zero disables it.
func WithResponseDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithComposingHook is called with true before a reply is generated and false after.
func WithComposingHook(fn func(composing bool)) Option {
	return func(c *Controller) {
		c.composing = fn
	}
}

// WithWelcomeText overrides the welcome message.
func WithWelcomeText(text string) Option {
	return func(c *Controller) {
		if text != "" {
			c.welcome = text
		}
	}
}

// TurnOption configures a single Send or Retry call.
type TurnOption func(*turnConfig)

type turnConfig struct {
	composing func(bool)
	recorded  func(chat.Message)
}

// OnComposing reports composing start/stop for this turn only.
func OnComposing(fn func(composing bool)) TurnOption {
	return func(tc *turnConfig) {
		tc.composing = fn
	}
}

// OnUserMessage is called once the user message of a Send is persisted,
// before the reply is generated.
func OnUserMessage(fn func(chat.Message)) TurnOption {
	return func(tc *turnConfig) {
		tc.recorded = fn
	}
}

// NewController creates a controller in the Loading state. Call Attach before
// sending turns.
func NewController(sessionID string, messages store.MessageStore, resp responder.Responder, opts ...Option) *Controller {
	c := &Controller{
		sessionID: sessionID,
		store:     messages,
		responder: resp,
		welcome:   persona.Default().OpeningLine,
		state:     StateLoading,
		log:       logger.WithSession(sessionID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the session this controller serves.
func (c *Controller) SessionID() string { return c.sessionID }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Err returns the failure that moved the controller to Errored, if any.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Messages returns a copy of the confirmed log.
func (c *Controller) Messages() []chat.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	copied := make([]chat.Message, len(c.messages))
	copy(copied, c.messages)
	return copied
}

// Attach loads the session log (Loading -> Idle). A session with no persisted
// messages gets exactly one welcome message. Attach also recovers from Errored.
func (c *Controller) Attach(ctx context.Context) ([]chat.Message, error) {
	if err := chat.ValidateSessionID(c.sessionID); err != nil {
		return nil, err
	}

	c.turn.Lock()
	defer c.turn.Unlock()

	c.setState(StateLoading)

	messages, err := c.store.List(ctx, c.sessionID)
	if err != nil {
		c.fail("load", err)
		return nil, err
	}

	if len(messages) == 0 {
		messages, err = c.ensureWelcome(ctx)
		if err != nil {
			c.fail("welcome", err)
			return nil, err
		}
	}

	c.mu.Lock()
	c.messages = messages
	c.state = StateIdle
	c.lastErr = nil
	c.mu.Unlock()

	c.log.Debug("session attached", zap.Int("messages", len(messages)))
	return c.Messages(), nil
}

// ensureWelcome re-checks the store right before appending, and never appends
// twice from this controller even if the store read lags behind its writes.
func (c *Controller) ensureWelcome(ctx context.Context) ([]chat.Message, error) {
	current, err := c.store.List(ctx, c.sessionID)
	if err != nil {
		return nil, err
	}
	if len(current) > 0 {
		return current, nil
	}

	c.mu.RLock()
	welcomed := c.welcomed
	c.mu.RUnlock()
	if welcomed != nil {
		return []chat.Message{*welcomed}, nil
	}

	welcome, err := c.store.Append(ctx, chat.NewMessage{
		SessionID: c.sessionID,
		Content:   c.welcome,
		IsUser:    false,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.welcomed = &welcome
	c.mu.Unlock()

	c.log.Info("welcome message created")
	return []chat.Message{welcome}, nil
}

// Send runs one turn: append the user message, generate, append the reply.
//
// On generation failure the returned Turn carries the recorded user message
// and a nil Bot, and the error matches chat.ErrGenerationUnavailable.
func (c *Controller) Send(ctx context.Context, content string, opts ...TurnOption) (chat.Turn, error) {
	if err := chat.ValidateContent(content); err != nil {
		return chat.Turn{}, err
	}

	if !c.turn.TryLock() {
		return chat.Turn{}, ErrTurnInProgress
	}
	defer c.turn.Unlock()

	if err := c.ready(); err != nil {
		return chat.Turn{}, err
	}

	userMsg, err := c.store.Append(ctx, chat.NewMessage{
		SessionID: c.sessionID,
		Content:   content,
		IsUser:    true,
	})
	if err != nil {
		c.fail("append user message", err)
		return chat.Turn{}, err
	}
	c.record(userMsg, StateAwaitingResponse)

	tc := newTurnConfig(opts)
	if tc.recorded != nil {
		tc.recorded(userMsg)
	}

	turn := chat.Turn{User: &userMsg}
	turn.Bot, err = c.reply(ctx, content, tc)
	return turn, err
}

// Retry generates the reply for a trailing unanswered user message. The log
// is re-read first so a reply written elsewhere is never duplicated.
func (c *Controller) Retry(ctx context.Context, opts ...TurnOption) (chat.Turn, error) {
	if !c.turn.TryLock() {
		return chat.Turn{}, ErrTurnInProgress
	}
	defer c.turn.Unlock()

	if err := c.ready(); err != nil {
		return chat.Turn{}, err
	}

	messages, err := c.store.List(ctx, c.sessionID)
	if err != nil {
		c.fail("reload", err)
		return chat.Turn{}, err
	}

	c.mu.Lock()
	c.messages = messages
	c.mu.Unlock()

	if len(messages) == 0 || !messages[len(messages)-1].IsUser {
		return chat.Turn{}, ErrNothingToRetry
	}
	pending := messages[len(messages)-1]

	c.setState(StateAwaitingResponse)
	turn := chat.Turn{User: &pending}
	turn.Bot, err = c.reply(ctx, pending.Content, newTurnConfig(opts))
	return turn, err
}

func newTurnConfig(opts []TurnOption) turnConfig {
	tc := turnConfig{}
	for _, opt := range opts {
		opt(&tc)
	}
	return tc
}

func (c *Controller) reply(ctx context.Context, utterance string, tc turnConfig) (*chat.Message, error) {
	notify := func(composing bool) {
		if c.composing != nil {
			c.composing(composing)
		}
		if tc.composing != nil {
			tc.composing(composing)
		}
	}
	notify(true)
	text, err := c.generate(ctx, utterance)
	notify(false)

	if err != nil {
		c.setState(StateIdle)
		c.log.Warn("turn ended without a reply", zap.Error(err))
		return nil, err
	}

	botMsg, err := c.store.Append(ctx, chat.NewMessage{
		SessionID: c.sessionID,
		Content:   text,
		IsUser:    false,
	})
	if err != nil {
		c.fail("append bot message", err)
		return nil, err
	}
	c.record(botMsg, StateIdle)
	return &botMsg, nil
}

func (c *Controller) generate(ctx context.Context, utterance string) (string, error) {
	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", chat.GenerationUnavailable(ctx.Err())
		}
	}

	text, err := c.responder.Generate(ctx, utterance)
	if err != nil {
		if errors.Is(err, chat.ErrGenerationUnavailable) {
			return "", err
		}
		return "", chat.GenerationUnavailable(err)
	}
	if err := chat.ValidateContent(text); err != nil {
		return "", chat.GenerationUnavailable(err)
	}
	return text, nil
}

// busy reports whether a turn or attach currently holds the turn lock.
func (c *Controller) busy() bool {
	if !c.turn.TryLock() {
		return true
	}
	c.turn.Unlock()
	return false
}

func (c *Controller) ready() error {
	switch c.State() {
	case StateIdle:
		return nil
	case StateErrored:
		return ErrSessionErrored
	default:
		return ErrNotAttached
	}
}

func (c *Controller) record(msg chat.Message, next State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	c.state = next
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Controller) fail(op string, err error) {
	c.mu.Lock()
	c.state = StateErrored
	c.lastErr = err
	c.mu.Unlock()
	c.log.Error("session errored", zap.String("op", op), zap.Error(err))
}
