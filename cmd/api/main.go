package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zhouzirui/maktab-chat/backend/internal/analysis/intent"
	"github.com/zhouzirui/maktab-chat/backend/internal/config"
	"github.com/zhouzirui/maktab-chat/backend/internal/handler"
	"github.com/zhouzirui/maktab-chat/backend/internal/middleware"
	"github.com/zhouzirui/maktab-chat/backend/internal/model/participant"
	"github.com/zhouzirui/maktab-chat/backend/internal/obs"
	"github.com/zhouzirui/maktab-chat/backend/internal/service/chat"
	"github.com/zhouzirui/maktab-chat/backend/internal/service/events"
	"github.com/zhouzirui/maktab-chat/backend/internal/service/responder"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := obs.NewLogger(cfg.Log.Dev(), cfg.Log.Level)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Debug("no .env file loaded, using process environment", "err", envErr)
	}

	metrics := obs.NewMetrics(prometheus.DefaultRegisterer)

	broker := events.NewBroker(cfg.Chat.EventBuffer)
	broker.OnDrop(metrics.DroppedEvents.Inc)

	catalog := intent.DefaultCatalog()
	if cfg.Chat.ResetText != "" {
		catalog.ResetNotice = cfg.Chat.ResetText
	}

	responderSvc, err := responder.NewService(ctx, catalog, logger)
	if err != nil {
		logger.Error("failed to build responder", "err", err)
		os.Exit(1)
	}

	profiles := participant.NewMemoryStore(participant.Seed())
	chatSvc := chat.NewService(responderSvc, profiles, chat.Options{
		ResponseDelay: cfg.Chat.ResponseDelay,
		PreviewLimit:  cfg.Chat.PreviewLimit,
		Catalog:       responderSvc.Catalog(),
		Broker:        broker,
		Metrics:       metrics,
		Logger:        logger,
	})

	limiter := middleware.NewLimiterPool(cfg.Chat.SendRPS, cfg.Chat.SendBurst)
	go limiter.RunSweeper(time.Minute, ctx.Done())

	router := handler.NewRouter(handler.Deps{
		Participants: profiles,
		Chat:         chatSvc,
		Limiter:      limiter,
		Gatherer:     prometheus.DefaultGatherer,
		Logger:       logger,
	})

	logger.Info("support chat configured",
		"response_delay", cfg.Chat.ResponseDelay,
		"preview_limit", cfg.Chat.PreviewLimit,
		"send_rps", cfg.Chat.SendRPS,
	)

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *slog.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("maktab chat backend listening", "addr", addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
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
