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
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/cashcast/internal/app"
	"github.com/odyssey-erp/cashcast/internal/artifacts"
	forecasthttp "github.com/odyssey-erp/cashcast/internal/forecast/http"
	"github.com/odyssey-erp/cashcast/internal/observability"
	"github.com/odyssey-erp/cashcast/internal/platform/cache"
	"github.com/odyssey-erp/cashcast/internal/platform/db"
	"github.com/odyssey-erp/cashcast/internal/xero/oauth"
	"github.com/odyssey-erp/cashcast/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	var artifactReader forecasthttp.ArtifactReader
	var pool *pgxpool.Pool
	if cfg.PGDSN != "" {
		pool, err = db.New(ctx, cfg.Postgres())
		if err != nil {
			logger.Warn("connect postgres, artifacts disabled", slog.Any("error", err))
		} else {
			defer pool.Close()
			store := artifacts.NewStore(pool)
			if err := store.EnsureSchema(ctx); err != nil {
				logger.Error("ensure artifact schema", slog.Any("error", err))
				os.Exit(1)
			}
			artifactReader = store
		}
	}

	pipeline, err := app.NewPipeline(cfg, redisClient, logger)
	if err != nil {
		logger.Error("build pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	redisOpts := cfg.Queue()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	forecastHandler := forecasthttp.NewHandler(logger, pipeline.Service, artifactReader)
	forecastHandler.WithTimeout(cfg.AppRequestTimeout)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		ForecastHandler: forecastHandler,
		OAuthHandler:    oauth.NewHandler(pipeline.Tokens, logger),
		JobHandler:      jobs.NewHandler(inspector, jobClient, logger).WithSyncToken(cfg.JobsSyncToken),
		Metrics:         metrics,
		Connected: func(r *http.Request) bool {
			return !pipeline.Tokens.IsExpired(r.Context())
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
