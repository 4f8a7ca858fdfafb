package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/momversation/backend/internal/model/chat"
	chatService "github.com/momversation/backend/internal/service/chat"
	"github.com/momversation/backend/pkg/logger"
	"github.com/momversation/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	registry *chatService.Registry
}

// New 创建聊天处理器
func New(registry *chatService.Registry) *Handler {
	return &Handler{registry: registry}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/messages/{sessionID}", h.handleListMessages)
	r.Post("/messages", h.handleSendMessage)
	r.Post("/messages/retry", h.handleRetry)
	r.Put("/sessions/{sessionID}", h.handleAttachSession)
}

type sendRequest struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

type sessionResponse struct {
	SessionID string            `json:"sessionId"`
	State     chatService.State `json:"state"`
	Messages  []chat.Message    `json:"messages"`
}

// handleListMessages 按时间顺序返回会话消息，不产生任何写入
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := chat.ValidateSessionID(sessionID); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	messages, err := h.registry.Store().List(r.Context(), sessionID)
	if err != nil {
		respondFailure(w, sessionID, err)
		return
	}
	if messages == nil {
		messages = []chat.Message{}
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleSendMessage 执行一轮对话：保存用户消息、生成回复、保存回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload sendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if chat.ValidateSessionID(payload.SessionID) != nil || chat.ValidateContent(payload.Content) != nil {
		utils.RespondError(w, http.StatusBadRequest, "sessionId and content are required")
		return
	}

	controller, err := h.registry.Attached(r.Context(), payload.SessionID)
	if err != nil {
		respondFailure(w, payload.SessionID, err)
		return
	}

	turn, err := controller.Send(r.Context(), payload.Content)
	if err != nil {
		respondTurnFailure(w, payload.SessionID, turn, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn)
}

// handleRetry 为最后一条未回复的用户消息重新生成回复
func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if chat.ValidateSessionID(payload.SessionID) != nil {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	controller, err := h.registry.Attached(r.Context(), payload.SessionID)
	if err != nil {
		respondFailure(w, payload.SessionID, err)
		return
	}

	turn, err := controller.Retry(r.Context())
	if err != nil {
		respondTurnFailure(w, payload.SessionID, turn, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn)
}

// handleAttachSession 幂等地加载会话，首次访问时创建欢迎消息
func (h *Handler) handleAttachSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := chat.ValidateSessionID(sessionID); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	controller, err := h.registry.Attached(r.Context(), sessionID)
	if err != nil {
		respondFailure(w, sessionID, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, sessionResponse{
		SessionID: sessionID,
		State:     controller.State(),
		Messages:  controller.Messages(),
	})
}

// StatusFor 将领域错误映射为HTTP状态码
func StatusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrTurnInProgress),
		errors.Is(err, chatService.ErrNothingToRetry),
		errors.Is(err, chatService.ErrNotAttached):
		return http.StatusConflict
	case errors.Is(err, chat.ErrGenerationUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, chat.ErrStoreUnavailable),
		errors.Is(err, chatService.ErrSessionErrored):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondFailure(w http.ResponseWriter, sessionID string, err error) {
	status := StatusFor(err)
	logger.WithSession(sessionID).Warn("chat request failed", zap.Int("status", status), zap.Error(err))
	utils.RespondError(w, status, err.Error())
}

// respondTurnFailure 在生成失败时仍返回已保存的用户消息
func respondTurnFailure(w http.ResponseWriter, sessionID string, turn chat.Turn, err error) {
	if turn.User == nil {
		respondFailure(w, sessionID, err)
		return
	}

	status := StatusFor(err)
	logger.WithSession(sessionID).Warn("turn ended without a reply", zap.Int("status", status), zap.Error(err))
	utils.RespondJSON(w, status, map[string]any{
		"error":       err.Error(),
		"userMessage": turn.User,
	})
}
