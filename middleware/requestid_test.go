package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDGenerated(t *testing.T) {
	var logs bytes.Buffer
	var fromContext, fromGin string

	r := gin.New()
	r.Use(RequestID(zerolog.New(&logs)))
	r.GET("/ping", func(c *gin.Context) {
		fromContext = GetRequestID(c.Request.Context())
		fromGin = c.GetString(RequestIDKey)
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside handler")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	rid := w.Header().Get("X-Request-Id")
	_, err := uuid.Parse(rid)
	require.NoError(t, err)
	assert.Equal(t, rid, fromContext)
	assert.Equal(t, rid, fromGin)

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, `"request_id":"`+rid+`"`)
	}
	assert.Contains(t, lines[1], `"status":204`)
}

func TestRequestIDPropagated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(zerolog.Nop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("x", 200))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get("X-Request-Id"), 36, "oversized IDs are replaced")
}

func TestErrorHandlerRecoversPanics(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(zerolog.Nop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"internal"`)
	assert.NotContains(t, w.Body.String(), "boom")
}

type trackerFunc func(ip string)

func (f trackerFunc) TrackVisitor(ip string) { f(ip) }

func TestStatsMiddleware(t *testing.T) {
	var seen []string
	r := gin.New()
	r.Use(StatsMiddleware(trackerFunc(func(ip string) { seen = append(seen, ip) })))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, []string{"198.51.100.7"}, seen)
}
