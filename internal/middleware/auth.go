package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"canvasquest/internal/models"
	"canvasquest/internal/service"
)

const (
	currentUserKey = "current_user"
	accessTokenKey = "access_token"
)

// Authenticator is implemented by *service.Gate.
type Authenticator interface {
	RequireAuth(ctx context.Context, token string) (models.User, error)
	OptionalAuth(ctx context.Context, token string) *models.User
}

// RequireAuth aborts unless the bearer token resolves to an active user.
func RequireAuth(gate Authenticator, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))

		user, err := gate.RequireAuth(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrUnauthenticated):
			c.Header("WWW-Authenticate", `Bearer realm="canvasquest"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		case errors.Is(err, service.ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user_inactive"})
			return
		default:
			log.Error().Err(err).Str("request_id", RequestIDFrom(c)).Msg("resolve session")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
			return
		}

		c.Set(accessTokenKey, token)
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when the token resolves and never aborts.
func OptionalAuth(gate Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if user := gate.OptionalAuth(c.Request.Context(), token); user != nil {
			c.Set(accessTokenKey, token)
			c.Set(currentUserKey, *user)
		}
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

// OptionalUser returns nil for anonymous requests.
func OptionalUser(c *gin.Context) *models.User {
	user, ok := CurrentUser(c)
	if !ok {
		return nil
	}
	return &user
}

func AccessToken(c *gin.Context) string {
	return c.GetString(accessTokenKey)
}
