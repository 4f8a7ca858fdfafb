// Package client talks to the chat HTTP API for clients running the mediated
// topology.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/momversation/backend/internal/model/chat"
	"github.com/momversation/backend/internal/model/persona"
	chatService "github.com/momversation/backend/internal/service/chat"
)

// APIError is a non-2xx answer from the server. It unwraps to the matching
// domain sentinel so callers can use errors.Is across the wire.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return chat.ErrInvalidInput
	case http.StatusConflict:
		if e.Message == chatService.ErrNothingToRetry.Error() {
			return chatService.ErrNothingToRetry
		}
		return chatService.ErrTurnInProgress
	case http.StatusBadGateway:
		return chat.ErrGenerationUnavailable
	case http.StatusServiceUnavailable:
		return chat.ErrStoreUnavailable
	default:
		return nil
	}
}

// Session is the attach response.
type Session struct {
	SessionID string            `json:"sessionId"`
	State     chatService.State `json:"state"`
	Messages  []chat.Message    `json:"messages"`
}

// Client is a thin JSON client for the /api routes.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. A nil httpClient gets a 60 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Attach loads the session server side, creating the welcome message if needed.
func (c *Client) Attach(ctx context.Context, sessionID string) (Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPut, "/api/sessions/"+url.PathEscape(sessionID), nil, &session)
	return session, err
}

// Messages returns the session log without side effects.
func (c *Client) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var messages []chat.Message
	err := c.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(sessionID), nil, &messages)
	return messages, err
}

// Send runs one turn. When generation fails the returned Turn still carries
// the recorded user message.
func (c *Client) Send(ctx context.Context, sessionID, content string) (chat.Turn, error) {
	body := map[string]string{"sessionId": sessionID, "content": content}
	return c.turn(ctx, "/api/messages", body)
}

// Retry asks the server to answer the trailing unanswered user message.
func (c *Client) Retry(ctx context.Context, sessionID string) (chat.Turn, error) {
	return c.turn(ctx, "/api/messages/retry", map[string]string{"sessionId": sessionID})
}

// Persona fetches the companion persona and its quick topics.
func (c *Client) Persona(ctx context.Context) (persona.Persona, error) {
	var p persona.Persona
	err := c.do(ctx, http.MethodGet, "/api/persona", nil, &p)
	return p, err
}

func (c *Client) turn(ctx context.Context, path string, body any) (chat.Turn, error) {
	var turn chat.Turn
	err := c.do(ctx, http.MethodPost, path, body, &turn)
	if err != nil {
		var apiErr *turnError
		if errors.As(err, &apiErr) {
			return chat.Turn{User: apiErr.user}, apiErr.APIError
		}
		return chat.Turn{}, err
	}
	return turn, nil
}

// turnError carries the user message the server recorded before failing.
type turnError struct {
	*APIError
	user *chat.Message
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure struct {
			Error       string        `json:"error"`
			UserMessage *chat.Message `json:"userMessage"`
		}
		_ = json.Unmarshal(data, &failure)
		if failure.Error == "" {
			failure.Error = strings.TrimSpace(string(data))
		}
		apiErr := &APIError{Status: resp.StatusCode, Message: failure.Error}
		if failure.UserMessage != nil {
			return &turnError{APIError: apiErr, user: failure.UserMessage}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
