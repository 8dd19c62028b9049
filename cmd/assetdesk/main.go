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

	"github.com/assetdesk/assetdesk/internal/app"
	"github.com/assetdesk/assetdesk/internal/assets"
	"github.com/assetdesk/assetdesk/internal/borrowing"
	"github.com/assetdesk/assetdesk/internal/inventory"
	"github.com/assetdesk/assetdesk/internal/observability"
	"github.com/assetdesk/assetdesk/internal/patches"
	"github.com/assetdesk/assetdesk/internal/platform/cache"
	"github.com/assetdesk/assetdesk/internal/platform/db"
	"github.com/assetdesk/assetdesk/internal/shared"
	"github.com/assetdesk/assetdesk/internal/software"
	"github.com/assetdesk/assetdesk/internal/users"
	"github.com/assetdesk/assetdesk/jobs"
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

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, dashboard caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryCache := inventory.NewCache(redisClient, cfg.DashboardCacheTTL)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, inventoryCache)
	inventoryReports := inventory.NewReports(inventoryRepo, inventoryCache)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, inventoryReports)

	assetsRepo := assets.NewRepository(pool)
	assetsService := assets.NewService(assetsRepo)
	assetsHandler := assets.NewHandler(logger, assetsService)

	borrowingRepo := borrowing.NewRepository(pool)
	borrowingService := borrowing.NewService(borrowingRepo, auditLogger)
	borrowingHandler := borrowing.NewHandler(logger, borrowingService)

	softwareRepo := software.NewRepository(pool)
	softwareService := software.NewService(softwareRepo)
	softwareHandler := software.NewHandler(logger, softwareService)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	patchesRepo := patches.NewRepository(pool)
	patchesService := patches.NewService(patchesRepo)
	patchesHandler := patches.NewHandler(logger, patchesService)

	jobInspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobHandler := jobs.NewHandler(jobInspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		InventoryHandler: inventoryHandler,
		AssetsHandler:    assetsHandler,
		BorrowingHandler: borrowingHandler,
		SoftwareHandler:  softwareHandler,
		UsersHandler:     usersHandler,
		PatchesHandler:   patchesHandler,
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
