package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Server    ServerConfig
	App       AppConfig
	Gemini    GeminiConfig
	Snapshot  SnapshotConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AllowedOrigins []string
	TrustedProxies []string
}

type AppConfig struct {
	Environment  string
	Version      string
	DevMode      bool
	LogLevel     string
	LogFormat    string
	DataDir      string
	RetainMonths int
}

type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	SearchGrounding bool
}

type SnapshotConfig struct {
	Enabled  bool
	Timeout  time.Duration
	MaxBytes int64
}

type CacheConfig struct {
	Backend       string
	TTL           time.Duration
	MaxEntries    int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LoadEnv loads .env.development, falling back to .env. It reports whether a file was found.
func LoadEnv() bool {
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			return false
		}
	}
	return true
}

// Load reads the configuration from the environment and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8082"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES", nil),
		},
		App: AppConfig{
			Environment:  getEnv("APP_ENV", "development"),
			Version:      getEnv("APP_VERSION", "1.0.0"),
			DevMode:      getEnvAsBool("DEV_MODE", false),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			LogFormat:    getEnv("LOG_FORMAT", "json"),
			DataDir:      getEnv("DATA_DIR", "data"),
			RetainMonths: getEnvAsInt("STATS_RETAIN_MONTHS", 2),
		},
		Gemini: GeminiConfig{
			APIKey:          getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
			Model:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL:         getEnv("GEMINI_BASE_URL", ""),
			SearchGrounding: getEnvAsBool("GEMINI_SEARCH_GROUNDING", true),
		},
		Snapshot: SnapshotConfig{
			Enabled:  getEnvAsBool("SNAPSHOT_ENABLED", true),
			Timeout:  getEnvAsDuration("SNAPSHOT_TIMEOUT", 10*time.Second),
			MaxBytes: int64(getEnvAsInt("SNAPSHOT_MAX_BYTES", 2*1024*1024)),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(getEnv("CACHE_BACKEND", CacheNone)),
			TTL:           getEnvAsDuration("CACHE_TTL", 30*time.Minute),
			MaxEntries:    getEnvAsInt("CACHE_MAX_ENTRIES", 1000),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 2),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the service cannot start with. A missing
// API key is not one of them: it is reported per request.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Cache.Backend {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of none, memory, redis (got %q)", c.Cache.Backend)
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}

	if c.App.LogFormat != "json" && c.App.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console (got %q)", c.App.LogFormat)
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be greater than 0")
	}

	if c.Snapshot.Enabled && c.Snapshot.MaxBytes <= 0 {
		return fmt.Errorf("SNAPSHOT_MAX_BYTES must be greater than 0")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvAsDuration accepts Go durations ("30m") or plain seconds ("1800")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
