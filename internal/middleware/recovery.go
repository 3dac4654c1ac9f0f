package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a 500 carrying the request id, so the
// client can quote it and the stack can be found in the logs.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			event := log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Str("method", c.Request.Method).
				Str("route", c.FullPath()).
				Str("request_id", RequestIDFrom(c))
			if user, ok := CurrentUser(c); ok {
				event = event.Int64("user_id", user.ID)
			}
			event.Msg("panic recovered")

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "internal_server_error",
				"request_id": RequestIDFrom(c),
			})
		}()
		c.Next()
	}
}
