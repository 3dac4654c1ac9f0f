package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"canvasquest/internal/middleware"
	"canvasquest/internal/service"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters: ErrStorageFailure is checked last so wrapped causes that
// are also service errors keep their own status.
var errorMappings = []errorMapping{
	{service.ErrDuplicateIdentity, http.StatusConflict, "artist_name_taken"},
	{service.ErrDuplicateEmail, http.StatusConflict, "email_taken"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
	{service.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, "unsupported_media_type"},
	{service.ErrStorageFailure, http.StatusInternalServerError, "storage_failure"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_server_error"
}

// writeError aborts with the JSON error body for err. Client errors carry the
// error text; server errors are logged and reported generically.
func (h HandlerSet) writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		h.log.Error().Err(err).Str("request_id", middleware.RequestIDFrom(c)).Msg("request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": code})
		return
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer realm="canvasquest"`)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": err.Error()})
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
}
