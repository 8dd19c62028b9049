package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/assetdesk/assetdesk/internal/app"
	"github.com/assetdesk/assetdesk/internal/assets"
	"github.com/assetdesk/assetdesk/internal/borrowing"
	"github.com/assetdesk/assetdesk/internal/inventory"
	"github.com/assetdesk/assetdesk/internal/observability"
	"github.com/assetdesk/assetdesk/internal/platform/db"
	"github.com/assetdesk/assetdesk/jobs"
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

	metrics := observability.NewMetrics()

	inventoryRepo := inventory.NewRepository(pool)
	borrowingRepo := borrowing.NewRepository(pool)
	borrowingService := borrowing.NewService(borrowingRepo, nil)
	assetsRepo := assets.NewRepository(pool)

	warrantyWindow := time.Duration(cfg.WarrantyWindowDays) * 24 * time.Hour
	lowStockJob := jobs.NewLowStockScanJob(inventoryRepo, logger, metrics)
	overdueJob := jobs.NewOverdueBorrowScanJob(borrowingService, logger, metrics)
	warrantyJob := jobs.NewWarrantyExpiryScanJob(assetsRepo, warrantyWindow, logger, metrics)

	now := time.Now().UTC()
	lowStockTask, err := jobs.NewLowStockScanTask(now)
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	overdueTask, err := jobs.NewOverdueBorrowScanTask(now)
	if err != nil {
		logger.Error("build overdue task", slog.Any("error", err))
		os.Exit(1)
	}
	warrantyTask, err := jobs.NewWarrantyExpiryScanTask(now)
	if err != nil {
		logger.Error("build warranty task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
			{Type: jobs.TaskOverdueBorrowScan, Handler: overdueJob.Handle},
			{Type: jobs.TaskWarrantyExpiryScan, Handler: warrantyJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LowStockCron, Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.OverdueBorrowCron, Task: overdueTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.WarrantyExpiryCron, Task: warrantyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
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
