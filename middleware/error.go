package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrorHandler middleware recovers from any panics and handles errors
func ErrorHandler(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("panic", err).
					Str("request_id", c.GetString(RequestIDKey)).
					Bytes("stack", debug.Stack()).
					Msg("Panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":      "An unexpected error occurred",
					"kind":       "internal",
					"request_id": c.GetString(RequestIDKey),
				})
			}
		}()

		c.Next()
	}
}
