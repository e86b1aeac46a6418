package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/og-analyzer/analyzer"
	"github.com/seo-optimizer/og-analyzer/middleware"
	"github.com/seo-optimizer/og-analyzer/stats"
	"github.com/seo-optimizer/og-analyzer/web"
)

// URLAnalyzer is the analysis entry point used by the handlers
type URLAnalyzer interface {
	Analyze(ctx context.Context, rawURL string) (*analyzer.AnalysisResult, error)
}

// StatsProvider exposes usage statistics
type StatsProvider interface {
	Summary(devMode bool) stats.Summary
}

type AnalyzeRequest struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

type Handler struct {
	analyzer URLAnalyzer
	stats    StatsProvider
	devMode  bool
	service  string
	version  string
}

func NewHandler(a URLAnalyzer, s StatsProvider, service, version string, devMode bool) *Handler {
	return &Handler{
		analyzer: a,
		stats:    s,
		devMode:  devMode,
		service:  service,
		version:  version,
	}
}

// Analyze handles POST /api/analyze
func (h *Handler) Analyze(c *gin.Context) {
	var request AnalyzeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.fail(c, &analyzer.Error{Kind: analyzer.KindValidation, Msg: "invalid request body", Err: err})
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), request.URL)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) fail(c *gin.Context, err error) {
	c.JSON(analyzer.StatusCode(err), ErrorResponse{
		Error:     analyzer.UserMessage(err),
		Kind:      string(analyzer.KindOf(err)),
		RequestID: c.GetString(middleware.RequestIDKey),
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.service,
		Version:   h.version,
	})
}

func (h *Handler) Statistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Summary(h.devMode))
}

// Index serves the single-page UI
func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.Index)
}
