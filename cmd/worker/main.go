package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"canvasquest/internal/cache"
	"canvasquest/internal/config"
	"canvasquest/internal/database"
	"canvasquest/internal/log"
	"canvasquest/internal/queue"
	"canvasquest/internal/repository"
	"canvasquest/internal/storage"
	"canvasquest/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init blob store")
	}

	processor := tasks.NewProcessor(
		repository.NewArtworkRepository(dbPool),
		blobs,
		cfg.Uploads.ThumbnailWidth,
		cfg.Uploads.ThumbnailHeight,
		logger,
	)
	consumer := queue.NewConsumer(client, queue.ConsumerConfig{
		Stream:        cfg.Redis.Stream,
		Group:         cfg.Redis.Group,
		Consumer:      cfg.Redis.Consumer,
		ClaimInterval: cfg.Queue.ClaimInterval,
	}, logger, processor)

	backlog, err := cache.StreamBacklog(ctx, client, cfg.Redis.Stream, cfg.Redis.Group)
	if err != nil {
		logger.Warn().Err(err).Msg("read stream backlog")
	}
	logger.Info().Str("stream", cfg.Redis.Stream).Int64("pending", backlog).Msg("worker started")
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("worker exited")
}
