package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvasquest/internal/models"
	"canvasquest/internal/queue"
)

type stubLister struct {
	rows  []models.Artwork
	limit int
}

func (s *stubLister) ListMissingThumbnails(_ context.Context, limit int) ([]models.Artwork, error) {
	s.limit = limit
	return s.rows, nil
}

type stubQueue struct {
	tasks []queue.ThumbnailTask
	err   error
}

func (s *stubQueue) EnqueueThumbnail(_ context.Context, task queue.ThumbnailTask) error {
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func TestBackfill(t *testing.T) {
	lister := &stubLister{rows: []models.Artwork{
		{ID: 1, FilePath: "artworks/a.png"},
		{ID: 2, FilePath: "artworks/b.jpg"},
	}}
	q := &stubQueue{}
	s := NewScheduler(lister, q, "0 */10 * * * *", 25, zerolog.Nop())

	n, err := s.Backfill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 25, lister.limit)
	assert.Equal(t, []queue.ThumbnailTask{
		{ArtworkID: 1, FilePath: "artworks/a.png"},
		{ArtworkID: 2, FilePath: "artworks/b.jpg"},
	}, q.tasks)
}

func TestBackfillStopsOnQueueError(t *testing.T) {
	lister := &stubLister{rows: []models.Artwork{{ID: 1, FilePath: "a"}}}
	s := NewScheduler(lister, &stubQueue{err: errors.New("redis down")}, "@every 1m", 0, zerolog.Nop())

	n, err := s.Backfill(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 50, lister.limit)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(&stubLister{}, &stubQueue{}, "not a schedule", 10, zerolog.Nop())
	assert.Error(t, s.Start())

	ok := NewScheduler(&stubLister{}, &stubQueue{}, "0 */10 * * * *", 10, zerolog.Nop())
	require.NoError(t, ok.Start())
	ok.Stop(context.Background())
}
