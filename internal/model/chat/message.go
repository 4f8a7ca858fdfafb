package chat

import "time"

// Message is one immutable entry in a session's append-only log.
// ID and CreatedAt are assigned by the store, never by callers.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"isUser"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage is the caller-supplied part of a message before the store persists it.
type NewMessage struct {
	SessionID string
	Content   string
	IsUser    bool
}

// Turn pairs a user message with the bot reply produced for it.
// Bot is nil when generation failed and the turn was left open.
type Turn struct {
	User *Message `json:"userMessage"`
	Bot  *Message `json:"botMessage"`
}
