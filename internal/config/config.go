package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	UpstreamURL string
	JWTSecret   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	CORSOrigin  string
	// Upstream HTTP client timeout. Zero delegates entirely to the caller's context.
	UpstreamTimeout time.Duration
	// Redis Configuration
	RedisURL string
	CacheTTL time.Duration
	// Path to the resource-convention file (pagination bases, log-shaping cutoffs).
	ConventionsPath string
}

func Load() Config {
	// Optional .env for local development; a missing file is fine.
	_ = godotenv.Load()

	return Config{
		Addr:            getenv("API_ADDR", ":8989"),
		UpstreamURL:     getenv("PAYADMIN_UPSTREAM_URL", "http://localhost:9000/v1"),
		JWTSecret:       getenv("PAYADMIN_JWT_SECRET", "payadmin-dev-secret"),
		AccessTTL:       time.Duration(getenvInt("PAYADMIN_ACCESS_TTL_SECONDS", 900)) * time.Second,
		RefreshTTL:      time.Duration(getenvInt("PAYADMIN_REFRESH_TTL_SECONDS", 2592000)) * time.Second,
		CORSOrigin:      getenv("PAYADMIN_CORS_ORIGIN", "*"),
		UpstreamTimeout: time.Duration(getenvInt("PAYADMIN_UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,
		// Redis - required for session storage and the response cache
		RedisURL:        getenv("REDIS_URL", "redis://localhost:6379/0"),
		CacheTTL:        time.Duration(getenvInt("PAYADMIN_CACHE_TTL_SECONDS", 30)) * time.Second,
		ConventionsPath: getenv("PAYADMIN_CONVENTIONS_FILE", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
