package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	apiHttp "github.com/alchile/backend/internal/api/http"
	"github.com/alchile/backend/internal/cache"
	"github.com/alchile/backend/internal/config"
	"github.com/alchile/backend/internal/db"
	"github.com/alchile/backend/internal/gateway"
	"github.com/alchile/backend/internal/queue/asynqserver"
	queueClient "github.com/alchile/backend/internal/queue/client"
	"github.com/alchile/backend/internal/queue/task"
	"github.com/alchile/backend/internal/repository"
	"github.com/alchile/backend/internal/server"
	"github.com/alchile/backend/internal/service"
	"github.com/alchile/backend/internal/worker"
	"github.com/alchile/backend/pkg/auth"
	"github.com/alchile/backend/pkg/logger"
	"github.com/alchile/backend/pkg/otp"
)

func main() {
	// Init cfg from environment variables
	cfg := config.MustLoad()

	appLogger := logger.SetupLogger(cfg.Env, cfg.LogLevel)

	appLogger.Infow("starting verification api", "env", cfg.Env)
	appLogger.Debug("debug messages are enabled")

	// Init database
	dbMySQL, err := db.New(cfg.Database)
	if err != nil {
		appLogger.Errorw("mysql connect problem", "error", err)
		os.Exit(1)
	}
	defer func() {
		err = dbMySQL.Close()
		if err != nil {
			appLogger.Errorw("error when closing", "error", err)
		}
	}()
	appLogger.Info("mysql connection done")

	// Asynq connects lazily, so ping redis up front to fail fast on a bad
	// cache config.
	redisClient, err := cache.NewRedis(cfg.Cache)
	if err != nil {
		appLogger.Errorw("redis connect problem", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			appLogger.Errorw("redis close failed", "error", err)
		}
	}()
	appLogger.Info("redis connection done")

	tokenManager, err := auth.NewManager(cfg.Auth.JWT)
	if err != nil {
		appLogger.Errorw("auth manager creation err", "error", err)
		return
	}

	deliveryGateway, err := gateway.FromConfig(cfg.Delivery)
	if err != nil {
		appLogger.Errorw("delivery gateway creation err", "error", err)
		return
	}

	// Services, Repos & API Handlers
	repos := repository.NewRepositories(dbMySQL)
	services := service.NewServices(service.Deps{
		Config:    cfg,
		Generator: otp.NewRandomGenerator(),
		Deliverer: deliveryGateway,
		Repos:     repos,
	})
	handlers := apiHttp.NewHandlers(services, tokenManager, cfg)

	// Background queue: worker pool, periodic cleanup schedule and a client
	// for on-demand enqueues from the API.
	workers := worker.NewWorkers(worker.Deps{Services: services})

	redisOpts := asynqserver.RedisOptions(cfg.Cache)

	asynqSrv, asynqMux := asynqserver.New(cfg.Cache, workers)
	go func() {
		if err := asynqSrv.Run(asynqMux); err != nil {
			appLogger.Errorw("asynq server stopped", "error", err)
		}
	}()

	scheduler := asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{
		LogLevel: asynq.ErrorLevel,
	})
	if _, err := scheduler.Register(cfg.Cleanup.Schedule, task.NewCleanupCodesTask()); err != nil {
		appLogger.Errorw("cleanup task registration failed", "error", err)
		return
	}
	if err := scheduler.Start(); err != nil {
		appLogger.Errorw("scheduler start failed", "error", err)
		return
	}

	asynqClient := asynq.NewClient(redisOpts)
	restoreClient := queueClient.SetClient(asynqClient)
	defer restoreClient()
	defer func() {
		if err := asynqClient.Close(); err != nil {
			appLogger.Errorw("asynq client close failed", "error", err)
		}
	}()

	// HTTP Server
	srv := server.NewServer(cfg, handlers.Init(cfg))
	go func() {
		if err := srv.Run(); !errors.Is(err, http.ErrServerClosed) {
			appLogger.Errorw("error occurred while running http server", "error", err)
		}
	}()
	appLogger.Info("server started")

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	const timeout = 5 * time.Second

	ctx, shutdown := context.WithTimeout(context.Background(), timeout)
	defer shutdown()

	scheduler.Shutdown()
	asynqSrv.Shutdown()

	if err := srv.Stop(ctx); err != nil {
		appLogger.Errorw("failed to stop server", "error", err)
	}

	appLogger.Info("app stopped")
}
