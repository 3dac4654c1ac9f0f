package tasks

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"canvasquest/internal/media/thumbnail"
	"canvasquest/internal/models"
	"canvasquest/internal/queue"
	"canvasquest/internal/repository"
	"canvasquest/internal/storage"
)

// ArtworkThumbnails is the slice of the artwork repository the processor
// needs.
type ArtworkThumbnails interface {
	GetByID(ctx context.Context, id int64) (models.Artwork, error)
	SetThumbnail(ctx context.Context, id int64, thumbnailPath string) error
}

type Processor struct {
	artworks ArtworkThumbnails
	store    storage.Store
	width    int
	height   int
	logger   zerolog.Logger
}

func NewProcessor(artworks ArtworkThumbnails, store storage.Store, width, height int, logger zerolog.Logger) *Processor {
	return &Processor{
		artworks: artworks,
		store:    store,
		width:    width,
		height:   height,
		logger:   logger,
	}
}

// Handle implements queue.MessageHandler. Entries that can never succeed are
// logged and acknowledged; transient failures are returned so the entry is
// retried.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := queue.DecodeThumbnailTask(msg.Values)
	if err != nil {
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed task")
		return nil
	}
	return p.Thumbnail(ctx, task)
}

func (p *Processor) Thumbnail(ctx context.Context, task queue.ThumbnailTask) error {
	log := p.logger.With().Int64("artwork_id", task.ArtworkID).Logger()

	artwork, err := p.artworks.GetByID(ctx, task.ArtworkID)
	if errors.Is(err, repository.ErrArtworkNotFound) {
		log.Info().Msg("artwork gone, skipping thumbnail")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load artwork: %w", err)
	}
	if artwork.ThumbnailPath != nil || artwork.FileFormat == "svg" {
		return nil
	}

	original, err := p.store.Get(ctx, artwork.FilePath)
	if errors.Is(err, storage.ErrNotFound) {
		log.Warn().Str("file_path", artwork.FilePath).Msg("original blob missing")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read original: %w", err)
	}

	thumb, err := thumbnail.Generate(original, p.width, p.height)
	if err != nil {
		log.Warn().Err(err).Msg("cannot render thumbnail")
		return nil
	}

	key := ThumbnailKey(artwork.FilePath)
	if err := p.store.Put(ctx, key, thumb, "image/jpeg"); err != nil {
		return fmt.Errorf("store thumbnail: %w", err)
	}
	if err := p.artworks.SetThumbnail(ctx, artwork.ID, key); err != nil {
		if errors.Is(err, repository.ErrArtworkNotFound) {
			// Deleted while rendering.
			_ = p.store.Delete(ctx, key)
			return nil
		}
		return fmt.Errorf("record thumbnail: %w", err)
	}

	log.Info().Str("thumbnail_path", key).Int("bytes", len(thumb)).Msg("thumbnail stored")
	return nil
}

// ThumbnailKey derives "thumbnails/thumb_<name>.jpg" from an artwork key.
func ThumbnailKey(filePath string) string {
	base := path.Base(filePath)
	name := strings.TrimSuffix(base, path.Ext(base))
	return "thumbnails/thumb_" + name + ".jpg"
}
