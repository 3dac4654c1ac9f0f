package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"canvasquest/internal/models"
	"canvasquest/internal/queue"
)

type MissingThumbnails interface {
	ListMissingThumbnails(ctx context.Context, limit int) ([]models.Artwork, error)
}

type ThumbnailEnqueuer interface {
	EnqueueThumbnail(ctx context.Context, task queue.ThumbnailTask) error
}

// Scheduler periodically re-enqueues raster artworks whose thumbnail was
// never produced, for example because the worker was down at upload time.
type Scheduler struct {
	cron     *cron.Cron
	artworks MissingThumbnails
	queue    ThumbnailEnqueuer
	schedule string
	batch    int
	log      zerolog.Logger
}

func NewScheduler(artworks MissingThumbnails, queue ThumbnailEnqueuer, schedule string, batch int, log zerolog.Logger) *Scheduler {
	if batch <= 0 {
		batch = 50
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		artworks: artworks,
		queue:    queue,
		schedule: schedule,
		batch:    batch,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil || s.schedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.backfill); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron and waits for a running backfill, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) backfill() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.Backfill(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("thumbnail backfill failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("enqueued", n).Msg("thumbnail backfill")
	}
}

// Backfill enqueues one batch of artworks lacking thumbnails and returns how
// many were enqueued.
func (s *Scheduler) Backfill(ctx context.Context) (int, error) {
	missing, err := s.artworks.ListMissingThumbnails(ctx, s.batch)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, artwork := range missing {
		if err := s.queue.EnqueueThumbnail(ctx, queue.ThumbnailTask{
			ArtworkID: artwork.ID,
			FilePath:  artwork.FilePath,
		}); err != nil {
			return enqueued, err
		}
		enqueued++
	}
	return enqueued, nil
}
