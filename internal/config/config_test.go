package config

import (
	"kanji/internal/caldav"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "PRIMARY_TIMEZONE", "CALDAV_URL", "CALDAV_USERNAME", "CALDAV_PASSWORD", "FETCH_TIMEOUT", "FETCH_RETRIES", "FETCH_CONCURRENCY", "SERVER_ADDR", "TOKEN_DIR"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, caldav.DefaultEndpoint, cfg.CalDAVURL)
	assert.False(t, cfg.CalDAVEnabled())
	assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 2, cfg.Fetch.Retries)
	assert.Equal(t, 8, cfg.Fetch.Concurrency)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, ".", cfg.TokenDir)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PRIMARY_TIMEZONE", "Asia/Tokyo")
	t.Setenv("CALDAV_USERNAME", "me@example.com")
	t.Setenv("CALDAV_PASSWORD", "app-password")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("FETCH_RETRIES", "0")
	t.Setenv("FETCH_CONCURRENCY", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Asia/Tokyo", cfg.Location.String())
	assert.True(t, cfg.CalDAVEnabled())
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 0, cfg.Fetch.Retries)
	assert.Equal(t, 2, cfg.Fetch.Concurrency)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"PRIMARY_TIMEZONE":  "Nowhere/Special",
		"FETCH_TIMEOUT":     "soon",
		"FETCH_RETRIES":     "-1",
		"FETCH_CONCURRENCY": "many",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
