package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Upstream VOD API
	APIBase         string
	UpstreamTimeout time.Duration

	// Redis (optional; in-memory cache and no prefetch when empty)
	RedisURL string

	// Page cache
	CacheTTL      time.Duration
	CacheStaleTTL time.Duration

	// Prefetch and landing page refresh
	PrefetchWorkers int
	RefreshInterval time.Duration

	// HTTP
	RateLimitPerMin int

	// Logging
	LogLevel string

	// Presentation
	SiteTitle string
	AdClient  string
	AdSlot    string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		Env:             getEnvOrDefault("ENV", "development"),
		APIBase:         strings.TrimRight(getEnvOrDefault("API_BASE", "https://api.xqc.wtf"), "/"),
		UpstreamTimeout: getEnvAsDurationOrDefault("UPSTREAM_TIMEOUT", 10*time.Second),
		RedisURL:        getEnvOrDefault("REDIS_URL", ""),
		CacheTTL:        getEnvAsDurationOrDefault("CACHE_TTL", time.Minute),
		CacheStaleTTL:   getEnvAsDurationOrDefault("CACHE_STALE_TTL", 24*time.Hour),
		PrefetchWorkers: getEnvAsIntOrDefault("PREFETCH_WORKERS", 2),
		RefreshInterval: getEnvAsDurationOrDefault("REFRESH_INTERVAL", 45*time.Second),
		RateLimitPerMin: getEnvAsIntOrDefault("RATE_LIMIT_PER_MIN", 300),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		SiteTitle:       getEnvOrDefault("SITE_TITLE", "VODS - xQc"),
		AdClient:        getEnvOrDefault("AD_CLIENT", ""),
		AdSlot:          getEnvOrDefault("AD_SLOT", ""),
	}

	if cfg.CacheStaleTTL < cfg.CacheTTL {
		cfg.CacheStaleTTL = cfg.CacheTTL
	}

	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
