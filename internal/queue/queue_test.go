package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu    sync.Mutex
	tasks []ThumbnailTask
	fail  bool
}

func (h *recordingHandler) Handle(_ context.Context, msg redis.XMessage) error {
	if h.fail {
		return errors.New("boom")
	}
	task, err := DecodeThumbnailTask(msg.Values)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.tasks = append(h.tasks, task)
	h.mu.Unlock()
	return nil
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func testConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Stream:   "artworks:thumbnails",
		Group:    "thumbnail-workers",
		Consumer: "worker-test",
		Block:    -1,
	}
}

func TestProduceAndConsume(t *testing.T) {
	ctx := context.Background()
	client := newRedis(t)
	handler := &recordingHandler{}
	consumer := NewConsumer(client, testConsumerConfig(), zerolog.Nop(), handler)
	require.NoError(t, consumer.EnsureGroup(ctx))
	require.NoError(t, consumer.EnsureGroup(ctx), "creating the group twice is fine")

	producer := NewProducer(client, "artworks:thumbnails")
	require.NoError(t, producer.EnqueueThumbnail(ctx, ThumbnailTask{ArtworkID: 3, FilePath: "artworks/a.png"}))
	require.NoError(t, producer.EnqueueThumbnail(ctx, ThumbnailTask{ArtworkID: 4, FilePath: "artworks/b.jpg"}))

	acked, err := consumer.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, acked)
	assert.Equal(t, []ThumbnailTask{
		{ArtworkID: 3, FilePath: "artworks/a.png"},
		{ArtworkID: 4, FilePath: "artworks/b.jpg"},
	}, handler.tasks)

	pending, err := client.XPending(ctx, "artworks:thumbnails", "thumbnail-workers").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)

	acked, err = consumer.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, acked)
}

func TestFailedEntriesStayPending(t *testing.T) {
	ctx := context.Background()
	client := newRedis(t)
	consumer := NewConsumer(client, testConsumerConfig(), zerolog.Nop(), &recordingHandler{fail: true})
	require.NoError(t, consumer.EnsureGroup(ctx))

	producer := NewProducer(client, "artworks:thumbnails")
	require.NoError(t, producer.EnqueueThumbnail(ctx, ThumbnailTask{ArtworkID: 1, FilePath: "artworks/a.png"}))

	acked, err := consumer.ReadOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, acked)

	pending, err := client.XPending(ctx, "artworks:thumbnails", "thumbnail-workers").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)
}

func TestDecodeThumbnailTask(t *testing.T) {
	task, err := DecodeThumbnailTask(map[string]any{"type": "thumbnail", "artwork_id": "12", "file_path": "artworks/x.png"})
	require.NoError(t, err)
	assert.Equal(t, ThumbnailTask{ArtworkID: 12, FilePath: "artworks/x.png"}, task)

	_, err = DecodeThumbnailTask(map[string]any{"type": "cleanup"})
	assert.ErrorIs(t, err, ErrUnknownTask)

	_, err = DecodeThumbnailTask(map[string]any{"type": "thumbnail", "artwork_id": "abc", "file_path": "x"})
	assert.Error(t, err)

	_, err = DecodeThumbnailTask(map[string]any{"type": "thumbnail", "artwork_id": "1"})
	assert.Error(t, err)
}
