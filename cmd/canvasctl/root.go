package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"canvasquest/internal/config"
	"canvasquest/internal/database"
	"canvasquest/internal/log"
	"canvasquest/internal/service"
	"canvasquest/internal/storage"
)

// backend is what the admin commands operate on. pool is nil in tests.
type backend struct {
	pool     *pgxpool.Pool
	auth     *service.AuthService
	artworks *service.ArtworkService
	close    func()
}

type connector func(ctx context.Context) (*backend, error)

func newRootCmd(connect connector) *cobra.Command {
	root := &cobra.Command{
		Use:           "canvasctl",
		Short:         "Administer a CanvasQuest deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(connect),
		newUsersCmd(connect),
		newArtworksCmd(connect),
	)
	return root
}

// withBackend connects, runs fn and releases the connection.
func withBackend(cmd *cobra.Command, connect connector, fn func(b *backend) error) error {
	b, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer b.close()
	return fn(b)
}

func connectPostgres(ctx context.Context) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := log.New(cfg.Environment, cfg.Logging.Level).With().Str("component", "canvasctl").Logger()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	stores := service.PostgresStores(pool)
	return &backend{
		pool:     pool,
		auth:     service.NewAuthService(stores, service.NewPgTxRunner(pool), nil, blobs, logger),
		artworks: service.NewArtworkService(stores.Artworks, blobs, nil, cfg.Uploads, cfg.Security.ResourceSecret(), logger),
		close:    pool.Close,
	}, nil
}
