package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "GIN_MODE", "CORS_ALLOWED_ORIGINS", "TRUSTED_PROXIES", "APP_ENV", "APP_VERSION", "DEV_MODE",
	"LOG_LEVEL", "LOG_FORMAT", "DATA_DIR", "STATS_RETAIN_MONTHS", "GEMINI_API_KEY", "API_KEY",
	"GEMINI_MODEL", "GEMINI_BASE_URL", "GEMINI_SEARCH_GROUNDING", "SNAPSHOT_ENABLED",
	"SNAPSHOT_TIMEOUT", "SNAPSHOT_MAX_BYTES", "CACHE_BACKEND", "CACHE_TTL", "CACHE_MAX_ENTRIES",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8082", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Nil(t, cfg.Server.TrustedProxies)
	assert.False(t, cfg.App.DevMode)
	assert.Equal(t, "json", cfg.App.LogFormat)
	assert.Equal(t, 2, cfg.App.RetainMonths)
	assert.Empty(t, cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.True(t, cfg.Gemini.SearchGrounding)
	assert.True(t, cfg.Snapshot.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Snapshot.Timeout)
	assert.Equal(t, CacheNone, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 2.0, cfg.RateLimit.RPS)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("API_KEY", "fallback-key")
	t.Setenv("CACHE_BACKEND", "Redis")
	t.Setenv("CACHE_TTL", "600")
	t.Setenv("SNAPSHOT_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 172.16.0.0/12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.App.DevMode)
	assert.Equal(t, "fallback-key", cfg.Gemini.APIKey)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 3*time.Second, cfg.Snapshot.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 0.5, cfg.RateLimit.RPS)
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, cfg.Server.TrustedProxies)

	t.Setenv("GEMINI_API_KEY", "primary-key")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "primary-key", cfg.Gemini.APIKey)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string][2]string{
		"unknown cache":   {"CACHE_BACKEND", "memcached"},
		"negative ttl":    {"CACHE_TTL", "-1m"},
		"bad log format":  {"LOG_FORMAT", "xml"},
		"zero rate":       {"RATE_LIMIT_RPS", "0"},
		"zero burst":      {"RATE_LIMIT_BURST", "0"},
		"zero page bytes": {"SNAPSHOT_MAX_BYTES", "0"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestEnvHelpersIgnoreGarbage(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_DURATION", "soon")
	t.Setenv("TEST_BOOL", "nope")

	assert.Equal(t, 7, getEnvAsInt("TEST_INT", 7))
	assert.Equal(t, time.Second, getEnvAsDuration("TEST_DURATION", time.Second))
	assert.False(t, getEnvAsBool("TEST_BOOL", true))
}
