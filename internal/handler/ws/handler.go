package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatHandler "github.com/momversation/backend/internal/handler/chat"
	"github.com/momversation/backend/internal/model/chat"
	chatService "github.com/momversation/backend/internal/service/chat"
	"github.com/momversation/backend/pkg/logger"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Frame types.
const (
	TypeHistory   = "history"
	TypeMessage   = "message"
	TypeRetry     = "retry"
	TypeUser      = "user"
	TypeComposing = "composing"
	TypeBot       = "bot"
	TypeError     = "error"
)

// Handler WebSocket对话处理器
type Handler struct {
	registry *chatService.Registry
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(registry *chatService.Registry) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接：连接时推送历史消息，每条入站消息执行一轮对话
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := chat.ValidateSessionID(sessionID); err != nil {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	log := logger.WithSession(sessionID)

	// 升级前先加载会话，存储不可用时直接返回HTTP错误
	controller, err := h.registry.Attached(r.Context(), sessionID)
	if err != nil {
		http.Error(w, err.Error(), chatHandler.StatusFor(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, sessionID, TypeHistory, controller.Messages())

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.handleMessage(ctx, conn, controller, msg)
	}
}

// handleMessage 同步执行一轮对话，因此同一连接上的写操作只发生在读循环中
func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, controller *chatService.Controller, msg inboundMessage) {
	sessionID := controller.SessionID()

	// 先校验帧内容，无效输入不会触发重新加载或写入
	switch msg.Type {
	case TypeMessage:
		if err := chat.ValidateContent(msg.Content); err != nil {
			h.sendError(conn, sessionID, err)
			return
		}
	case TypeRetry:
	default:
		h.sendError(conn, sessionID, chat.InvalidInput("unknown message type "+msg.Type))
		return
	}

	if controller.State() == chatService.StateErrored {
		if _, err := controller.Attach(ctx); err != nil {
			h.sendError(conn, sessionID, err)
			return
		}
	}

	opts := []chatService.TurnOption{
		chatService.OnUserMessage(func(m chat.Message) {
			h.send(conn, sessionID, TypeUser, m)
		}),
		chatService.OnComposing(func(on bool) {
			h.send(conn, sessionID, TypeComposing, map[string]bool{"composing": on})
		}),
	}

	var (
		turn chat.Turn
		err  error
	)
	switch msg.Type {
	case TypeMessage:
		turn, err = controller.Send(ctx, msg.Content, opts...)
	case TypeRetry:
		turn, err = controller.Retry(ctx, opts...)
	}

	if err != nil {
		h.sendError(conn, sessionID, err)
		return
	}
	h.send(conn, sessionID, TypeBot, turn.Bot)
}

func (h *Handler) send(conn *websocket.Conn, sessionID, msgType string, data interface{}) {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		logger.WithSession(sessionID).Debug("websocket write failed", zap.String("type", msgType), zap.Error(err))
	}
}

func (h *Handler) sendError(conn *websocket.Conn, sessionID string, err error) {
	h.send(conn, sessionID, TypeError, map[string]any{
		"message": err.Error(),
		"status":  chatHandler.StatusFor(err),
	})
}

// pingLoop 使用 WriteControl，可与读循环中的写操作并发执行
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

