package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/threadline/backend/internal/config"
	"github.com/zhouzirui/threadline/backend/internal/handler"
	"github.com/zhouzirui/threadline/backend/internal/model/thought"
	"github.com/zhouzirui/threadline/backend/internal/service/forest"
	moodservice "github.com/zhouzirui/threadline/backend/internal/service/mood"
	"github.com/zhouzirui/threadline/backend/internal/service/notify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env is fine; the process environment still applies.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if envErr != nil {
		logger.Info("no .env file loaded, using process environment", zap.Error(envErr))
	}

	hub := notify.NewHub(cfg.Forest.ToastDuration, logger.Named("notify"))

	policy, err := forest.ParsePolicy(cfg.Forest.NotifyPolicy)
	if err != nil {
		logger.Fatal("invalid notify policy", zap.Error(err))
	}

	var ids thought.IDGenerator = thought.UUIDGenerator{}
	if cfg.Forest.IDMode == config.IDModeSequence {
		ids = thought.NewSequenceGenerator("t")
	}

	store := forest.NewStore(forest.Options{
		IDs:      ids,
		Notifier: hub,
		Policy:   policy,
		Logger:   logger.Named("forest"),
		SeedText: cfg.Forest.SeedText,
	})
	logger.Info("forest seeded", zap.String("policy", string(store.Policy())), zap.String("idMode", cfg.Forest.IDMode))

	var chatModel model.ChatModel
	if cfg.AI.MoodLLMEnabled {
		if cfg.AI.Enabled() {
			chatModel, err = cfg.AI.NewChatModel(ctx)
			if err != nil {
				logger.Warn("failed to create chat model, mood suggestions use heuristics", zap.Error(err))
				chatModel = nil
			}
		} else {
			logger.Info("mood classifier requested but ark credentials missing, using heuristics")
		}
	}

	moods, err := moodservice.NewService(ctx, chatModel, moodservice.Config{Enabled: cfg.AI.MoodLLMEnabled}, logger.Named("mood"))
	if err != nil {
		logger.Fatal("failed to initialise mood service", zap.Error(err))
	}
	if moods.Enabled() {
		logger.Info("mood classifier enabled")
	}

	router := handler.NewRouter(handler.Deps{
		Store:   store,
		Hub:     hub,
		Moods:   moods,
		MaxText: cfg.Forest.MaxTextLength,
		Logger:  logger.Named("http"),
	})

	startServer(ctx, cfg.Server, router, logger)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Production() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		// Long-lived SSE and WebSocket handlers end when the process is signalled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	logger.Info("threadline backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
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
