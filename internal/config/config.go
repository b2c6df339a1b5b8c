// Package config reads runtime settings from the environment. Call
// godotenv.Load first to pick up a local .env file.
package config

import (
	"fmt"
	"kanji/internal/caldav"
	"kanji/internal/collector"
	"os"
	"strconv"
	"time"
)

// Config holds every setting of the kanji binary.
type Config struct {
	LogLevel           string
	Location           *time.Location
	GoogleClientID     string
	GoogleClientSecret string
	TokenDir           string
	CalDAVURL          string
	CalDAVUsername     string
	CalDAVPassword     string
	Fetch              collector.Options
	ServerAddr         string
}

// CalDAVEnabled reports whether CalDAV credentials were supplied.
func (c *Config) CalDAVEnabled() bool {
	return c.CalDAVUsername != "" && c.CalDAVPassword != ""
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:           getenv("LOG_LEVEL", "info"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		TokenDir:           getenv("TOKEN_DIR", "."),
		CalDAVURL:          getenv("CALDAV_URL", caldav.DefaultEndpoint),
		CalDAVUsername:     os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword:     os.Getenv("CALDAV_PASSWORD"),
		Fetch:              collector.DefaultOptions(),
		ServerAddr:         getenv("SERVER_ADDR", ":8080"),
	}

	tzStr := getenv("PRIMARY_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzStr)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", tzStr, err)
	}
	cfg.Location = loc

	if cfg.Fetch.Timeout, err = durationEnv("FETCH_TIMEOUT", cfg.Fetch.Timeout); err != nil {
		return nil, err
	}
	if cfg.Fetch.Retries, err = intEnv("FETCH_RETRIES", cfg.Fetch.Retries); err != nil {
		return nil, err
	}
	if cfg.Fetch.Concurrency, err = intEnv("FETCH_CONCURRENCY", cfg.Fetch.Concurrency); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s '%s': want a positive duration like 15s", key, v)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s '%s': want a non-negative integer", key, v)
	}
	return n, nil
}
