package storage

import (
	"context"
	"errors"
	"fmt"

	"canvasquest/internal/config"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

// Store holds artwork and thumbnail bytes under slash-separated keys such as
// "artworks/<id>.png". Delete of a missing key is not an error.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "local":
		return NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	case "minio":
		store, err := NewObjectStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("storage driver %q not supported", cfg.Driver)
}
