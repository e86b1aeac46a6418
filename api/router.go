package api

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/seo-optimizer/og-analyzer/middleware"
)

type RouterConfig struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For; nil trusts no one
	TrustedProxies []string
	RateLimiter    *middleware.RateLimiter
	Visitors       middleware.VisitorTracker
}

// NewRouter assembles the gin engine with middleware and routes
func NewRouter(h *Handler, cfg RouterConfig) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	r.Use(middleware.ErrorHandler(cfg.Logger))
	r.Use(middleware.RequestID(cfg.Logger))
	r.Use(middleware.Metrics())
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	if cfg.Visitors != nil {
		r.Use(middleware.StatsMiddleware(cfg.Visitors))
	}

	r.GET("/", h.Index)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/healthz", h.Health)
		api.GET("/statistics", h.Statistics)

		analyze := []gin.HandlerFunc{h.Analyze}
		if cfg.RateLimiter != nil {
			analyze = append([]gin.HandlerFunc{cfg.RateLimiter.RateLimit()}, analyze...)
		}
		api.POST("/analyze", analyze...)
	}

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		config.AllowAllOrigins = true
		return config
	}
	for _, origin := range origins {
		if origin == "*" {
			config.AllowAllOrigins = true
			return config
		}
	}
	config.AllowOrigins = origins
	return config
}
