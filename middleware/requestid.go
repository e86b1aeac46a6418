package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDKey is the gin context key holding the request ID
const RequestIDKey = "request_id"

type requestIDKey struct{}

// RequestID ensures every request has an ID, echoes it in X-Request-Id and
// attaches a logger carrying it to the request context. The request is
// logged once it completes.
func RequestID(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader("X-Request-Id"))
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}

		c.Set(RequestIDKey, rid)
		c.Writer.Header().Set("X-Request-Id", rid)

		reqLog := log.With().Str("request_id", rid).Logger()
		ctx := context.WithValue(c.Request.Context(), requestIDKey{}, rid)
		c.Request = c.Request.WithContext(reqLog.WithContext(ctx))

		start := time.Now()
		c.Next()

		reqLog.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// GetRequestID extracts the request ID from a standard context
func GetRequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}
