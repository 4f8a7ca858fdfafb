package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/momversation/backend/internal/config"
	"github.com/momversation/backend/internal/handler"
	"github.com/momversation/backend/internal/model/persona"
	"github.com/momversation/backend/internal/service/chat"
	"github.com/momversation/backend/internal/service/responder"
	"github.com/momversation/backend/internal/store"
	"github.com/momversation/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.Sync()

	log := logger.L()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file loaded, continuing with system environment variables only", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Init(cfg.Debug)
	log = logger.L()

	messages, err := store.New(cfg.Store)
	if err != nil {
		log.Fatal("failed to initialize message store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	log.Info("message store initialized", zap.String("driver", cfg.Store.Driver))

	companion := persona.Default()

	resp, err := responder.New(ctx, cfg.AI, companion)
	if err != nil {
		log.Warn("failed to initialize remote responder, falling back to keyword rules - 请检查 AI_PROVIDER 相关环境变量",
			zap.String("provider", cfg.AI.Provider), zap.Error(err))
		resp = responder.NewRuleResponder()
	} else {
		log.Info("responder initialized", zap.String("provider", cfg.AI.Provider))
	}

	registry := chat.NewRegistry(messages, resp,
		chat.WithResponseDelay(cfg.Chat.ResponseDelay),
		chat.WithWelcomeText(companion.OpeningLine),
	)

	janitor := chat.NewJanitor(registry, cfg.Chat.IdleTimeout, chat.DefaultCleanupInterval)
	janitor.Start(ctx)
	defer janitor.Stop()

	router := handler.NewRouter(companion, registry)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.L().Info("Momversation backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.L().Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
