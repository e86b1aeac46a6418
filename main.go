package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/seo-optimizer/og-analyzer/analyzer"
	"github.com/seo-optimizer/og-analyzer/api"
	"github.com/seo-optimizer/og-analyzer/cache"
	"github.com/seo-optimizer/og-analyzer/config"
	"github.com/seo-optimizer/og-analyzer/logging"
	"github.com/seo-optimizer/og-analyzer/middleware"
	"github.com/seo-optimizer/og-analyzer/scheduler"
	"github.com/seo-optimizer/og-analyzer/stats"
)

const serviceName = "og-seo-analyzer"

func main() {
	envLoaded := config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info", logging.FormatJSON)
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logging.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if !envLoaded {
		log.Info().Msg("No .env file found, using environment variables")
	}
	if cfg.Gemini.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set; analyses will fail until it is configured")
	}

	gin.SetMode(cfg.Server.GinMode)

	statsStorage, err := stats.NewStorage(cfg.App.DataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize statistics storage")
	}

	analysisCache, memoryCache, closeCache := setupCache(cfg.Cache, log)

	opts := analyzer.Options{
		Cache:    analysisCache,
		Recorder: statsStorage,
		Logger:   log,
	}
	if cfg.Snapshot.Enabled {
		opts.Snapshotter = analyzer.NewSnapshotter(analyzer.SnapshotConfig{
			Timeout:  cfg.Snapshot.Timeout,
			MaxBytes: cfg.Snapshot.MaxBytes,
		})
	}

	generator := analyzer.NewGeminiGenerator(analyzer.GeminiConfig{
		APIKey:          cfg.Gemini.APIKey,
		Model:           cfg.Gemini.Model,
		BaseURL:         cfg.Gemini.BaseURL,
		SearchGrounding: cfg.Gemini.SearchGrounding,
	}, log)
	seoAnalyzer := analyzer.New(generator, opts)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	jobs := scheduler.New(log)
	mustSchedule(log, jobs, "stats-flush", "@every 5m", func() {
		if err := statsStorage.Flush(); err != nil {
			log.Error().Err(err).Msg("Failed to persist statistics")
		}
	})
	mustSchedule(log, jobs, "stats-retention", "@daily", func() {
		statsStorage.Cleanup(cfg.App.RetainMonths)
	})
	mustSchedule(log, jobs, "rate-limiter-cleanup", "@every 10m", func() {
		rateLimiter.Cleanup(30 * time.Minute)
	})
	if memoryCache != nil {
		mustSchedule(log, jobs, "cache-cleanup", "@every 5m", memoryCache.Cleanup)
	}
	jobs.Start()

	handler := api.NewHandler(seoAnalyzer, statsStorage, serviceName, cfg.App.Version, cfg.App.DevMode)
	router, err := api.NewRouter(handler, api.RouterConfig{
		Logger:         log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		RateLimiter:    rateLimiter,
		Visitors:       statsStorage,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("env", cfg.App.Environment).
			Str("cache", cfg.Cache.Backend).
			Bool("snapshot", cfg.Snapshot.Enabled).
			Msgf("Server starting on http://localhost:%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	jobs.Stop(shutdownCtx)
	if err := statsStorage.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Failed to persist statistics on shutdown")
	}
	if closeCache != nil {
		if err := closeCache(); err != nil {
			log.Error().Err(err).Msg("Failed to close cache")
		}
	}
}

// setupCache builds the configured cache. The memory cache is also returned
// so its cleanup can be scheduled.
func setupCache(cfg config.CacheConfig, log zerolog.Logger) (analyzer.Cache, *cache.Memory, func() error) {
	switch cfg.Backend {
	case config.CacheMemory:
		memory := cache.NewMemory(cfg.TTL, cfg.MaxEntries)
		return memory, memory, nil
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rc := cache.NewRedis(client, cfg.TTL)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
		}
		return rc, nil, rc.Close
	default:
		return nil, nil, nil
	}
}

func mustSchedule(log zerolog.Logger, s *scheduler.Scheduler, name, spec string, fn func()) {
	if err := s.Add(name, spec, fn); err != nil {
		log.Fatal().Err(err).Str("job", name).Msg("Failed to schedule job")
	}
}
