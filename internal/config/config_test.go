package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := decode(v)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 7*24*time.Hour, cfg.Security.SessionTTL)
	assert.Equal(t, int64(10*1024*1024), cfg.Uploads.MaxSizeBytes)
	assert.Equal(t, []string{".png", ".jpg", ".jpeg", ".svg"}, cfg.Uploads.AllowedExtensions)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, 30*time.Second, cfg.Queue.ClaimInterval)
	assert.Len(t, cfg.AllowCORSOrigins, 4)
}

func TestDecodeOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("security.sessionttl", "2h")
	v.Set("storage.driver", "minio")
	v.Set("allowcorsorigins", "https://canvas.example")

	cfg, err := decode(v)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Security.SessionTTL)
	assert.Equal(t, "minio", cfg.Storage.Driver)
	assert.Equal(t, []string{"https://canvas.example"}, cfg.AllowCORSOrigins)
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		return AppConfig{
			Environment: "development",
			Storage:     StorageConfig{Driver: "local"},
			Security:    SecurityConfig{JWTSecret: "s3cret", SessionTTL: time.Hour},
			Uploads:     UploadConfig{MaxSizeBytes: 1024},
		}
	}

	t.Run("ok", func(t *testing.T) {
		cfg := base()
		require.NoError(t, cfg.Validate())
	})

	t.Run("empty secret", func(t *testing.T) {
		cfg := base()
		cfg.Security.JWTSecret = "  "
		require.Error(t, cfg.Validate())
	})

	t.Run("placeholder secret in production", func(t *testing.T) {
		cfg := base()
		cfg.Environment = "production"
		cfg.Security.JWTSecret = DefaultJWTSecret
		require.Error(t, cfg.Validate())
	})

	t.Run("placeholder secret in development", func(t *testing.T) {
		cfg := base()
		cfg.Security.JWTSecret = DefaultJWTSecret
		require.NoError(t, cfg.Validate())
	})

	t.Run("unknown storage driver", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Driver = "ftp"
		require.Error(t, cfg.Validate())
	})

	t.Run("non-positive ttl", func(t *testing.T) {
		cfg := base()
		cfg.Security.SessionTTL = 0
		require.Error(t, cfg.Validate())
	})
}

func TestResourceSecretFallsBackToJWTSecret(t *testing.T) {
	sec := SecurityConfig{JWTSecret: "jwt"}
	assert.Equal(t, "jwt", sec.ResourceSecret())

	sec.SignatureSecret = "sig"
	assert.Equal(t, "sig", sec.ResourceSecret())
}
