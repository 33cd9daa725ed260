package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/predictor/internal/api/rest"
	"github.com/fortuna/predictor/internal/api/websocket"
	"github.com/fortuna/predictor/internal/cache"
	"github.com/fortuna/predictor/internal/config"
	"github.com/fortuna/predictor/internal/ingest"
	"github.com/fortuna/predictor/internal/league"
	"github.com/fortuna/predictor/internal/logging"
	"github.com/fortuna/predictor/internal/prediction"
	"github.com/fortuna/predictor/internal/publisher"
	"github.com/fortuna/predictor/internal/saves"
	"github.com/fortuna/predictor/internal/scheduler"
	"github.com/fortuna/predictor/internal/store"
	"github.com/fortuna/predictor/internal/store/repository"
)

const (
	serviceName    = "predictor"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting service", zap.String("service", serviceName), zap.String("version", serviceVersion))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var checks []rest.HealthCheck

	// Redis is shared by the redis saves backend and the event publisher
	var redisCache *cache.RedisCache
	if cfg.SavesBackend == config.BackendRedis || cfg.PublishEvents {
		redisCache = connectRedis(ctx, cfg.RedisURL, logger)
		defer redisCache.Close()
		checks = append(checks, rest.HealthCheck{Name: "redis", Check: redisCache.HealthCheck})
	}

	var backend saves.Backend
	switch cfg.SavesBackend {
	case config.BackendPostgres:
		db, err := store.NewDatabase(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal("failed to run database migrations", zap.Error(err))
		}
		backend = repository.NewSaveSlotRepository(db)
		checks = append(checks, rest.HealthCheck{Name: "postgres", Check: db.HealthCheck})
	case config.BackendRedis:
		backend = redisCache
	default:
		backend = saves.NewMemoryBackend()
	}
	logger.Info("save slot backend ready", zap.String("backend", cfg.SavesBackend))

	var source ingest.Source
	if cfg.DataBaseURL != "" {
		source = ingest.NewHTTPSource(cfg.DataBaseURL, cfg.FetchTimeout)
		logger.Info("league data source", zap.String("url", cfg.DataBaseURL))
	} else {
		source = ingest.NewDirSource(cfg.DataDir)
		logger.Info("league data source", zap.String("dir", cfg.DataDir))
	}

	catalog := league.DefaultCatalog()
	if _, err := catalog.Get(cfg.DefaultLeague); err != nil {
		logger.Fatal("invalid default league", zap.Error(err))
	}

	registry := prediction.NewRegistry(catalog, ingest.NewLoader(source, logger), backend, logger,
		prediction.WithDefaultLeague(cfg.DefaultLeague),
		prediction.WithStoreOptions(saves.WithAutosaveKeep(cfg.AutosaveKeep)),
	)

	if cfg.PublishEvents {
		pub := publisher.NewRedisStreamPublisher(redisCache.Client(), logger)
		registry.Subscribe(pub)
		go pub.Run(ctx)
		logger.Info("publishing session events to redis streams")
	}

	sched := scheduler.NewOrchestrator(registry, &scheduler.Config{
		SessionIdleTTL:  cfg.SessionIdleTTL,
		EvictSchedule:   cfg.JanitorSchedule,
		RefreshSchedule: cfg.RefreshSchedule,
	}, logger)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Start(ctx); err != nil {
			logger.Fatal("failed to start scheduler", zap.Error(err))
		}
	}()

	restServer := rest.NewServer(cfg.HTTPPort, registry, logger, checks...)
	go func() {
		logger.Info("REST API server listening", zap.String("port", cfg.HTTPPort))
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("REST server error", zap.Error(err))
		}
	}()

	wsServer := websocket.NewServer(cfg.WSPort, registry, logger)
	go func() {
		if err := wsServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("websocket server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()
	<-schedDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("REST API server shutdown error", zap.Error(err))
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("websocket server shutdown error", zap.Error(err))
	}

	logger.Info("stopped")
}

// connectRedis retries until Redis answers, since it may start after us
func connectRedis(ctx context.Context, url string, logger *zap.Logger) *cache.RedisCache {
	const (
		maxRetries = 30
		retryDelay = 2 * time.Second
	)

	for i := 0; i < maxRetries; i++ {
		rc, err := cache.NewRedisCache(ctx, url)
		if err == nil {
			logger.Info("connected to redis")
			return rc
		}
		if i == maxRetries-1 {
			logger.Fatal("failed to connect to redis", zap.Int("attempts", maxRetries), zap.Error(err))
		}
		logger.Warn("redis connection attempt failed",
			zap.Int("attempt", i+1),
			zap.Int("max", maxRetries),
			zap.Duration("retry_in", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil
}
