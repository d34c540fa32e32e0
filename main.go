package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbruni/weekendfly/api"
	"github.com/tbruni/weekendfly/config"
	"github.com/tbruni/weekendfly/db"
	"github.com/tbruni/weekendfly/engine"
	"github.com/tbruni/weekendfly/fares"
	"github.com/tbruni/weekendfly/metro"
	"github.com/tbruni/weekendfly/pkg/buildinfo"
	"github.com/tbruni/weekendfly/pkg/cache"
	"github.com/tbruni/weekendfly/pkg/logger"
	"github.com/tbruni/weekendfly/pkg/notify"
	"github.com/tbruni/weekendfly/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err, "failed to load configuration")
	}
	logger.Init(logger.Config{Level: cfg.LoggingConfig.Level, Format: cfg.LoggingConfig.Format})

	logger.Info("starting weekendfly",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"api_enabled", cfg.APIEnabled,
		"worker_enabled", cfg.WorkerEnabled,
	)

	database, err := db.New(cfg.DatabaseConfig)
	if err != nil {
		logger.Fatal(err, "failed to open database", "url", cfg.DatabaseConfig.URL)
	}
	defer database.Close()

	if err := database.InitSchema(); err != nil {
		logger.Fatal(err, "failed to initialize database schema")
	}

	index := metro.New(cfg.MatchConfig.NearbyRadiusKm)
	source := fares.NewRyanair(cfg.RyanairConfig.BaseURL)
	pushClient := notify.NewClient(notify.Config{
		ServerURL: cfg.NTFYConfig.ServerURL,
		Enabled:   cfg.NTFYConfig.Enabled,
	})

	harvester := engine.NewHarvester(database, source, cfg.ScanConfig)
	matcher := engine.NewMatcher(index, cfg.MatchConfig)
	notifier := engine.NewNotifier(pushClient, cfg.NTFYConfig)
	orchestrator := engine.NewOrchestrator(database, harvester, matcher, notifier)

	var scheduler *worker.Scheduler
	if cfg.WorkerEnabled {
		scheduler = worker.NewScheduler(database, orchestrator, notifier, cfg.WorkerConfig, cfg.ScanConfig)
		if err := scheduler.Start(); err != nil {
			logger.Fatal(err, "failed to start scheduler")
		}
	}

	var srv *http.Server
	if cfg.APIEnabled {
		var cacheManager *cache.Manager
		if cfg.RedisConfig.Addr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisConfig.Addr,
				Password: cfg.RedisConfig.Password,
				DB:       cfg.RedisConfig.DB,
			})
			defer client.Close()
			cacheManager = cache.NewManager(cache.NewRedisCache(client, "weekendfly"))
			logger.Info("response cache enabled", "redis_addr", cfg.RedisConfig.Addr)
		}

		router := api.NewRouter(database, index, cacheManager)
		srv = &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: router,
		}
		go func() {
			logger.Info("http server listening", "port", cfg.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal(err, "http server failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", "signal", sig.String())

	if scheduler != nil {
		scheduler.Stop()
	}
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error(err, "http server shutdown failed")
		}
	}
	logger.Info("shutdown complete")
}
