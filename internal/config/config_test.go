package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "/dav", cfg.HTTP.BasePath)
	assert.Equal(t, int64(1<<20), cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, 60*time.Second, cfg.CTagCacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("HTTP_BASE_PATH", "/webdav")
	t.Setenv("STORAGE_TYPE", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/portal.db")
	t.Setenv("CTAG_CACHE_TTL", "5m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "/webdav", cfg.HTTP.BasePath)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "/tmp/portal.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 5*time.Minute, cfg.CTagCacheTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsUnknownStorage(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "mysql")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBadBodyLimitFallsBack(t *testing.T) {
	t.Setenv("HTTP_MAX_BODY_BYTES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), cfg.HTTP.MaxBodyBytes)
}
