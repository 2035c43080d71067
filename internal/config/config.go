package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr         string
	Storage          string // "mysql" or "memory"
	MySQLDSN         string
	RedisAddr        string // empty disables request deduplication
	OrderExpiration  time.Duration
	SweepInterval    time.Duration
	RetryMaxAttempts int
	RetryBackoff     time.Duration
}

func Load() Config {
	return Config{
		HTTPAddr:         env("HTTP_ADDR", ":8080"),
		Storage:          env("STORAGE", "mysql"),
		MySQLDSN:         env("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront?parseTime=true"),
		RedisAddr:        env("REDIS_ADDR", ""),
		OrderExpiration:  time.Duration(envInt("ORDER_EXPIRATION_MINUTES", 30)) * time.Minute,
		SweepInterval:    time.Duration(envInt("SWEEP_INTERVAL_MS", 60000)) * time.Millisecond,
		RetryMaxAttempts: envInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBackoff:     time.Duration(envInt("RETRY_BACKOFF_MS", 200)) * time.Millisecond,
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
