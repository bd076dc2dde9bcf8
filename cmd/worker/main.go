package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/klinika/klinika/internal/app"
	"github.com/klinika/klinika/internal/integration"
	"github.com/klinika/klinika/internal/inventory"
	"github.com/klinika/klinika/internal/observability"
	"github.com/klinika/klinika/internal/parties"
	"github.com/klinika/klinika/internal/platform/cache"
	"github.com/klinika/klinika/internal/platform/db"
	"github.com/klinika/klinika/internal/platform/upstream"
	"github.com/klinika/klinika/internal/shared"
	"github.com/klinika/klinika/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "worker")

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	metrics := observability.NewMetrics()
	gateway := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamToken, upstream.WithObserver(metrics.ObserveUpstream))
	payloadCache := cache.NewPayloadCache(redisClient, cfg.UpstreamCache)
	payloadCache.Observe(metrics.ObserveCache)

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

	deliveryLog := integration.NewDeliveryLog(pool)
	auditLogger := shared.NewAuditLogger(pool)
	partiesService := parties.NewService(gateway, auditLogger)
	inventoryService := inventory.NewService(gateway, payloadCache)
	hooks := integration.NewHooks(asynqClient, deliveryLog, partiesService, integration.Config{
		SMSSender:       cfg.SMSSender,
		TelegramChatID:  cfg.TelegramChatID,
		EInvoiceEnabled: cfg.EInvoiceEnabled,
	}, logger)

	handlers := jobs.NewHandlers(gateway, deliveryLog, inventoryService, hooks, logger, metrics)

	var cron []jobs.CronRegistration
	for _, tenantID := range cfg.LowStockTenants {
		if tenantID == "" {
			continue
		}
		task, err := jobs.NewLowStockScanTask(jobs.LowStockScanPayload{TenantID: tenantID})
		if err != nil {
			logger.Error("build low stock task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.LowStockCron,
			Task:    task,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  handlers,
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
