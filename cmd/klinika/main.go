package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/klinika/klinika/internal/app"
	"github.com/klinika/klinika/internal/auth"
	"github.com/klinika/klinika/internal/integration"
	"github.com/klinika/klinika/internal/inventory"
	"github.com/klinika/klinika/internal/observability"
	"github.com/klinika/klinika/internal/parties"
	"github.com/klinika/klinika/internal/platform/cache"
	"github.com/klinika/klinika/internal/platform/db"
	"github.com/klinika/klinika/internal/platform/upstream"
	"github.com/klinika/klinika/internal/sales"
	"github.com/klinika/klinika/internal/sgk"
	"github.com/klinika/klinika/internal/shared"
	"github.com/klinika/klinika/jobs"
	"github.com/klinika/klinika/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "gateway")

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "klinika_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	gateway := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamToken, upstream.WithObserver(metrics.ObserveUpstream))
	payloadCache := cache.NewPayloadCache(redisClient, cfg.UpstreamCache)
	payloadCache.Observe(metrics.ObserveCache)

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	partiesService := parties.NewService(gateway, auditLogger)
	partiesHandler := parties.NewHandler(logger, partiesService)

	inventoryService := inventory.NewService(gateway, payloadCache)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	sgkService := sgk.NewService(gateway, payloadCache)
	sgkHandler := sgk.NewHandler(logger, sgkService)

	asynqClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	deliveryLog := integration.NewDeliveryLog(dbpool)
	hooks := integration.NewHooks(asynqClient, deliveryLog, partiesService, integration.Config{
		SMSSender:       cfg.SMSSender,
		TelegramChatID:  cfg.TelegramChatID,
		EInvoiceEnabled: cfg.EInvoiceEnabled,
	}, logger)

	salesService := sales.NewService(gateway, inventoryService, sgkService, hooks, auditLogger, idempotencyStore)
	salesHandler := sales.NewHandler(logger, salesService)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, salesService, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		PartiesHandler:   partiesHandler,
		InventoryHandler: inventoryHandler,
		SalesHandler:     salesHandler,
		SGKHandler:       sgkHandler,
		ReportHandler:    reportHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
