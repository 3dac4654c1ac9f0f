package servicetest

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"canvasquest/internal/config"
	"canvasquest/internal/security"
	"canvasquest/internal/service"
)

const (
	Secret        = "test-secret"
	Issuer        = "canvasquest"
	SessionTTL    = 7 * 24 * time.Hour
	SigningSecret = "signing-secret"
)

// Env wires the real services over in-memory dependencies.
type Env struct {
	Clock    *Clock
	Memory   *Memory
	Blobs    *Blobs
	Queue    *Queue
	Codec    *security.TokenCodec
	Auth     *service.AuthService
	Gate     *service.Gate
	Artworks *service.ArtworkService
}

func NewEnv(t testing.TB) *Env {
	t.Helper()

	clock := NewClock(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	mem := NewMemory(clock.Now)
	blobs := NewBlobs()
	q := &Queue{}
	codec := security.NewTokenCodec(Secret, Issuer, SessionTTL, security.WithClock(clock.Now))
	log := zerolog.Nop()

	auth := service.NewAuthService(mem.Stores(), mem, codec, blobs, log,
		service.WithClock(clock.Now),
		service.WithPasswordHasher(FastHash),
	)
	artworks := service.NewArtworkService(mem.Stores().Artworks, blobs, q, config.UploadConfig{
		MaxSizeBytes:      10 * 1024 * 1024,
		AllowedExtensions: []string{".png", ".jpg", ".jpeg", ".svg"},
		ThumbnailWidth:    300,
		ThumbnailHeight:   300,
	}, SigningSecret, log)

	return &Env{
		Clock:    clock,
		Memory:   mem,
		Blobs:    blobs,
		Queue:    q,
		Codec:    codec,
		Auth:     auth,
		Gate:     service.NewGate(auth, log),
		Artworks: artworks,
	}
}
