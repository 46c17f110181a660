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

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/cashcast/internal/app"
	"github.com/odyssey-erp/cashcast/internal/artifacts"
	jobmetrics "github.com/odyssey-erp/cashcast/internal/jobs"
	"github.com/odyssey-erp/cashcast/internal/platform/cache"
	"github.com/odyssey-erp/cashcast/internal/platform/db"
	"github.com/odyssey-erp/cashcast/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	if err := app.LoadEnv(); err != nil {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.Postgres())
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	store := artifacts.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("ensure artifact schema", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	pipeline, err := app.NewPipeline(cfg, redisClient, logger)
	if err != nil {
		logger.Error("build pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	syncJob := jobs.NewSyncJob(pipeline.Service, store, logger, jobmetrics.NewMetrics(nil))
	syncTask, err := jobs.NewSyncTask()
	if err != nil {
		logger.Error("build sync task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.Queue(),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskXeroSync, Handler: syncJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{
				Spec: cfg.SyncCron,
				Task: syncTask,
				Options: []asynq.Option{
					asynq.MaxRetry(1),
					asynq.Timeout(5 * time.Minute),
					asynq.Unique(time.Minute),
				},
			},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadTimeout: 5 * time.Second}
		go func() {
			logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
