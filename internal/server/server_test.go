package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvasquest/internal/config"
	"canvasquest/internal/handlers"
	"canvasquest/internal/service/servicetest"
	"canvasquest/internal/storage"
)

func TestServerRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	local, err := storage.NewLocalStore(t.TempDir(), "http://localhost:8000")
	require.NoError(t, err)
	require.NoError(t, local.Put(ctx, "artworks/sky.svg", []byte("<svg/>"), "image/svg+xml"))

	env := servicetest.NewEnv(t)
	cfg := &config.AppConfig{
		Environment: "test",
		HTTP:        config.HTTPConfig{Host: "127.0.0.1", Port: 0},
		Uploads:     config.UploadConfig{MaxSizeBytes: 1 << 20},
	}
	hs := handlers.NewHandlerSet(handlers.Deps{
		Log:      zerolog.Nop(),
		Auth:     env.Auth,
		Gate:     env.Gate,
		Artworks: env.Artworks,
	})
	srv := NewHTTPServer(cfg, zerolog.Nop(), hs, local)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/uploads/artworks/sky.svg")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<svg/>", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusOK, get("/api/health").Code)
	assert.Equal(t, http.StatusOK, get("/api/gallery").Code)
}
