package servicetest

import (
	"context"
	"sync"
	"time"

	"canvasquest/internal/queue"
	"canvasquest/internal/security"
	"canvasquest/internal/storage"
)

// Clock is a settable clock shared by the token codec and the services.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{t: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// FastHash hashes with minimal argon2 parameters to keep tests quick.
func FastHash(password string) (string, error) {
	return security.HashPasswordWithParams(password, security.Argon2Params{
		Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16,
	})
}

// Blobs is an in-memory storage.Store.
type Blobs struct {
	mu      sync.Mutex
	data    map[string][]byte
	PutErr  error
	Deleted []string
}

func NewBlobs() *Blobs {
	return &Blobs{data: map[string][]byte{}}
}

func (b *Blobs) Put(_ context.Context, key string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PutErr != nil {
		return b.PutErr
	}
	b.data[key] = append([]byte(nil), data...)
	return nil
}

func (b *Blobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (b *Blobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	b.Deleted = append(b.Deleted, key)
	return nil
}

func (b *Blobs) URL(key string) string {
	return "http://blobs.test/" + key
}

func (b *Blobs) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys
}

// Queue records enqueued thumbnail tasks.
type Queue struct {
	mu    sync.Mutex
	Tasks []queue.ThumbnailTask
	Err   error
}

func (q *Queue) EnqueueThumbnail(_ context.Context, task queue.ThumbnailTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.Tasks = append(q.Tasks, task)
	return nil
}
