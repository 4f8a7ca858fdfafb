package stream

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	chatHandler "github.com/momversation/backend/internal/handler/chat"
	"github.com/momversation/backend/internal/model/chat"
	chatService "github.com/momversation/backend/internal/service/chat"
	"github.com/momversation/backend/pkg/logger"
	"github.com/momversation/backend/pkg/utils"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// SSE event names.
const (
	EventUser      = "user"
	EventComposing = "composing"
	EventBot       = "bot"
	EventError     = "error"
	EventEnd       = "end"
)

// Handler runs one conversation turn and reports its progress via Server-Sent Events
type Handler struct {
	registry *chatService.Registry
}

// New creates a new stream handler
func New(registry *chatService.Registry) *Handler {
	return &Handler{registry: registry}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	SessionID string        `json:"sessionId"`
	Message   *chat.Message `json:"message,omitempty"`
	Composing *bool         `json:"composing,omitempty"`
	Error     string        `json:"error,omitempty"`
	Status    int           `json:"status,omitempty"`
	Finished  bool          `json:"finished,omitempty"`
}

// HandleStreamRequest attaches the session, runs one turn and streams each step.
// Invalid input is returned before anything is written or stored. Failures
// after the stream has started are reported as error events.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	if err := chat.ValidateSessionID(sessionID); err != nil {
		return err
	}
	if err := chat.ValidateContent(userMessage); err != nil {
		return err
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	log := logger.WithSession(sessionID)

	controller, err := h.registry.Attached(ctx, sessionID)
	if err != nil {
		h.sendError(w, flusher, sessionID, err)
		return err
	}

	composing := func(on bool) {
		h.send(w, flusher, EventComposing, StreamResponse{SessionID: sessionID, Composing: &on})
	}

	recorded := func(m chat.Message) {
		h.send(w, flusher, EventUser, StreamResponse{SessionID: sessionID, Message: &m})
	}

	turn, err := controller.Send(ctx, userMessage,
		chatService.OnUserMessage(recorded),
		chatService.OnComposing(composing),
	)
	if err != nil {
		h.sendError(w, flusher, sessionID, err)
		log.Warn("stream turn failed", zap.Error(err))
		return err
	}

	h.send(w, flusher, EventBot, StreamResponse{SessionID: sessionID, Message: turn.Bot})
	h.send(w, flusher, EventEnd, StreamResponse{SessionID: sessionID, Finished: true})

	log.Debug("stream turn completed")
	return nil
}

func (h *Handler) send(w http.ResponseWriter, flusher http.Flusher, event string, response StreamResponse) {
	if err := utils.SendSSEEvent(w, flusher, event, response); err != nil {
		logger.WithSession(response.SessionID).Debug("failed to write sse event", zap.String("event", event), zap.Error(err))
	}
}

func (h *Handler) sendError(w http.ResponseWriter, flusher http.Flusher, sessionID string, err error) {
	h.send(w, flusher, EventError, StreamResponse{
		SessionID: sessionID,
		Error:     err.Error(),
		Status:    chatHandler.StatusFor(err),
	})
	h.send(w, flusher, EventEnd, StreamResponse{SessionID: sessionID, Finished: true})
}
