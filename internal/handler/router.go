package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/momversation/backend/internal/handler/chat"
	"github.com/momversation/backend/internal/handler/persona"
	"github.com/momversation/backend/internal/handler/stream"
	"github.com/momversation/backend/internal/handler/ws"
	middlewarePkg "github.com/momversation/backend/internal/middleware"
	chatModel "github.com/momversation/backend/internal/model/chat"
	personaModel "github.com/momversation/backend/internal/model/persona"
	chatService "github.com/momversation/backend/internal/service/chat"
	"github.com/momversation/backend/pkg/logger"
	"github.com/momversation/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(companion personaModel.Persona, registry *chatService.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	personaHandler := persona.New(companion)
	chatHandler := chat.New(registry)
	streamHandler := stream.New(registry)
	wsHandler := ws.New(registry)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)

		// 每次请求执行一轮对话，并以SSE推送进度
		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			// 校验失败时不建立SSE流，也不触碰存储
			if err := chatModel.ValidateSessionID(sessionID); err != nil {
				utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
				return
			}
			if err := chatModel.ValidateContent(userMessage); err != nil {
				utils.RespondError(w, http.StatusBadRequest, "message is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				if errors.Is(err, chatModel.ErrInvalidInput) {
					utils.RespondError(w, http.StatusBadRequest, err.Error())
					return
				}
				if errors.Is(err, stream.ErrStreamingUnsupported) {
					utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
					return
				}
				logger.WithSession(sessionID).Debug("stream request ended with error", zap.Error(err))
			}
		})
	})

	return r
}
