package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noiddea/dash/internal/app"
	"github.com/noiddea/dash/internal/catalog"
	"github.com/noiddea/dash/internal/identity"
	"github.com/noiddea/dash/internal/platform/db"
	"github.com/noiddea/dash/internal/shared"
	"github.com/noiddea/dash/jobs"
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
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	resolver := identity.NewService(identity.NewRepository(pool))
	catalogService := catalog.NewService(catalog.NewRepository(pool), resolver, shared.NewAuditLogger(pool), logger)
	tasks := jobs.NewCatalogTasks(catalogService, logger)

	scanTask, err := jobs.NewIntegrityScanTask(time.Now().UTC())
	if err != nil {
		logger.Error("build integrity scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogImport, Handler: tasks.HandleImportBranch},
			{Type: jobs.TaskCatalogIntegrityScan, Handler: tasks.HandleIntegrityScan},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: scanTask},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("dash worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}
