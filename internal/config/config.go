package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string

	// StoreDriver selects the note store: memory, postgres or sqlite.
	StoreDriver string
	DatabaseURL string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// CacheURL is a Redis address; empty disables the cache.
	CacheURL string
	CacheTTL time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		StoreDriver:     getenv("STORE_DRIVER", "memory"),
		DatabaseURL:     getenv("DATABASE_URL", ""),
		MaxOpenConns:    getenvInt("DB_MAX_OPEN", 20),
		MaxIdleConns:    getenvInt("DB_MAX_IDLE", 10),
		ConnMaxLifetime: getenvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime: getenvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		CacheURL:        getenv("CACHE_URL", ""),
		CacheTTL:        getenvDuration("CACHE_TTL", 24*time.Hour),
		RateLimitRPS:    getenvFloat("RATE_LIMIT_RPS", 50),
		RateLimitBurst:  getenvInt("RATE_LIMIT_BURST", 100),
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
