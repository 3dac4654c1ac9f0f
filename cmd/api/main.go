package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"canvasquest/internal/cache"
	"canvasquest/internal/config"
	"canvasquest/internal/database"
	"canvasquest/internal/handlers"
	"canvasquest/internal/jobs"
	"canvasquest/internal/log"
	"canvasquest/internal/queue"
	"canvasquest/internal/repository"
	"canvasquest/internal/security"
	"canvasquest/internal/server"
	"canvasquest/internal/service"
	"canvasquest/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, dbPool); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init blob store")
	}

	codec := security.NewTokenCodec(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.SessionTTL)
	producer := queue.NewProducer(redisClient, cfg.Redis.Stream)
	stores := service.PostgresStores(dbPool)

	authService := service.NewAuthService(stores, service.NewPgTxRunner(dbPool), codec, blobs, logger)
	artworkService := service.NewArtworkService(stores.Artworks, blobs, producer, cfg.Uploads, cfg.Security.ResourceSecret(), logger)

	handlerSet := handlers.NewHandlerSet(handlers.Deps{
		Log:           logger,
		Environment:   cfg.Environment,
		MaxUploadSize: cfg.Uploads.MaxSizeBytes,
		Auth:          authService,
		Gate:          service.NewGate(authService, logger),
		Artworks:      artworkService,
		Checks:        healthChecks(dbPool, redisClient, blobs),
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet, blobs)

	scheduler := jobs.NewScheduler(
		repository.NewArtworkRepository(dbPool),
		producer,
		cfg.Queue.BackfillSchedule,
		cfg.Queue.BackfillBatch,
		logger,
	)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func healthChecks(db *pgxpool.Pool, redisClient *redis.Client, blobs storage.Store) []handlers.HealthCheck {
	checks := []handlers.HealthCheck{
		{Name: "database", Ping: db.Ping},
		{Name: "redis", Ping: func(ctx context.Context) error { return cache.Ping(ctx, redisClient) }},
	}
	if objects, ok := blobs.(*storage.ObjectStore); ok {
		checks = append(checks, handlers.HealthCheck{Name: "storage", Ping: objects.Ping})
	}
	return checks
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop(shutdownCtx)

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
