package tasks

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvasquest/internal/models"
	"canvasquest/internal/queue"
	"canvasquest/internal/repository"
	"canvasquest/internal/storage"
)

type fakeArtworks struct {
	rows map[int64]models.Artwork
}

func (f *fakeArtworks) GetByID(_ context.Context, id int64) (models.Artwork, error) {
	a, ok := f.rows[id]
	if !ok {
		return models.Artwork{}, repository.ErrArtworkNotFound
	}
	return a, nil
}

func (f *fakeArtworks) SetThumbnail(_ context.Context, id int64, key string) error {
	a, ok := f.rows[id]
	if !ok {
		return repository.ErrArtworkNotFound
	}
	a.ThumbnailPath = &key
	f.rows[id] = a
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestProcessorStoresThumbnail(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "artworks/abc.png", pngBytes(t, 640, 480), "image/png"))

	artworks := &fakeArtworks{rows: map[int64]models.Artwork{
		1: {ID: 1, FilePath: "artworks/abc.png", FileFormat: "png"},
	}}
	p := NewProcessor(artworks, store, 300, 300, zerolog.Nop())

	err = p.Handle(ctx, redis.XMessage{ID: "1-0", Values: map[string]any{
		"type": "thumbnail", "artwork_id": "1", "file_path": "artworks/abc.png",
	}})
	require.NoError(t, err)

	got := artworks.rows[1].ThumbnailPath
	require.NotNil(t, got)
	assert.Equal(t, "thumbnails/thumb_abc.jpg", *got)

	data, err := store.Get(ctx, *got)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestProcessorSkips(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)
	existing := "thumbnails/thumb_done.jpg"

	artworks := &fakeArtworks{rows: map[int64]models.Artwork{
		2: {ID: 2, FilePath: "artworks/vector.svg", FileFormat: "svg"},
		3: {ID: 3, FilePath: "artworks/done.png", FileFormat: "png", ThumbnailPath: &existing},
		4: {ID: 4, FilePath: "artworks/missing.png", FileFormat: "png"},
	}}
	p := NewProcessor(artworks, store, 300, 300, zerolog.Nop())

	for _, id := range []int64{2, 3, 4, 99} {
		require.NoError(t, p.Thumbnail(ctx, queue.ThumbnailTask{ArtworkID: id, FilePath: "x"}))
	}
	assert.Nil(t, artworks.rows[2].ThumbnailPath)
	assert.Nil(t, artworks.rows[4].ThumbnailPath)

	require.NoError(t, p.Handle(ctx, redis.XMessage{ID: "1-0", Values: map[string]any{"type": "nsfw"}}))
}

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "thumbnails/thumb_2abc.jpg", ThumbnailKey("artworks/2abc.jpeg"))
	assert.Equal(t, "thumbnails/thumb_x.jpg", ThumbnailKey("x.png"))
}
