package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port int
	Host string

	// Databases
	DatabasePath string
	// CachePath is the SQLite cache store location; empty selects the
	// in-memory store.
	CachePath string

	// Upstream
	UpstreamBaseURL  string
	AttemptTimeout   time.Duration
	Retries          int
	BreakerThreshold int
	BreakerOpenFor   time.Duration

	// Engine
	MaxStories        int
	FanoutConcurrency int
	RefreshInterval   time.Duration
	CacheDuration     time.Duration
	IDListTTL         time.Duration
	ItemTTL           time.Duration
	StartupDelay      time.Duration
	ErrorBackoff      time.Duration

	// Auth
	TokenTTL time.Duration

	// Rate Limiting
	ReadRateLimit   int // per window
	AuthRateLimit   int // per window
	RateLimitWindow time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:              getEnvInt("PORT", 8080),
		Host:              getEnv("HOST", "0.0.0.0"),
		DatabasePath:      getEnv("DATABASE_PATH", "hnpulse.db"),
		CachePath:         getEnv("CACHE_PATH", ""),
		UpstreamBaseURL:   getEnv("HN_BASE_URL", "https://hacker-news.firebaseio.com/v0"),
		AttemptTimeout:    getEnvDuration("ATTEMPT_TIMEOUT", 8*time.Second),
		Retries:           getEnvInt("RETRIES", 3),
		BreakerThreshold:  getEnvInt("BREAKER_THRESHOLD", 5),
		BreakerOpenFor:    getEnvDuration("BREAKER_OPEN_FOR", 30*time.Second),
		MaxStories:        getEnvInt("MAX_STORIES", 200),
		FanoutConcurrency: getEnvInt("FANOUT_CONCURRENCY", 10),
		RefreshInterval:   getEnvDuration("REFRESH_INTERVAL", 2*time.Minute),
		CacheDuration:     getEnvDuration("CACHE_DURATION", 2*time.Minute),
		IDListTTL:         getEnvDuration("IDLIST_TTL", 30*time.Second),
		ItemTTL:           getEnvDuration("ITEM_TTL", 5*time.Minute),
		StartupDelay:      getEnvDuration("STARTUP_DELAY", 10*time.Second),
		ErrorBackoff:      getEnvDuration("ERROR_BACKOFF", 30*time.Second),
		TokenTTL:          getEnvDuration("TOKEN_TTL", 24*time.Hour),
		ReadRateLimit:     getEnvInt("READ_RATE_LIMIT", 600),
		AuthRateLimit:     getEnvInt("AUTH_RATE_LIMIT", 30),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
