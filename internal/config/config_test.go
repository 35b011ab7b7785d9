package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Contains(t, cfg.Feed.SourceURL, "thebus.org")
	assert.Equal(t, "transit_cache.db", cfg.Feed.CachePath)
	assert.Equal(t, 24*time.Hour, cfg.Feed.MaxCacheAge)
	assert.Equal(t, 30*time.Second, cfg.Realtime.RefreshInterval)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server.Port, cfg.Server.Port)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
server:
  port: 8080
  env: staging
feed:
  sourceURL: testdata/feed.zip
  cachePath: ""
  refreshInterval: 1h
realtime:
  tripUpdatesURL: http://example.com/trips.pb
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "staging", cfg.Server.Env)
	assert.Equal(t, "testdata/feed.zip", cfg.Feed.SourceURL)
	assert.Equal(t, "", cfg.Feed.CachePath)
	assert.Equal(t, time.Hour, cfg.Feed.RefreshInterval)
	assert.Equal(t, "http://example.com/trips.pb", cfg.Realtime.TripUpdatesURL)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"port out of range", "server:\n  port: 99999\n"},
		{"unknown environment", "server:\n  env: sandbox\n"},
		{"bad realtime url", "realtime:\n  tripUpdatesURL: not-a-url\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "production")
	t.Setenv("TRANSIT_FEED_URL", "http://example.com/feed.zip")
	t.Setenv("TRIP_UPDATES_URL", "http://example.com/trips.pb")
	t.Setenv("LOG_FILE", "/var/log/transit/api.log")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Env)
	assert.Equal(t, "http://example.com/feed.zip", cfg.Feed.SourceURL)
	assert.Equal(t, "http://example.com/trips.pb", cfg.Realtime.TripUpdatesURL)
	assert.Equal(t, "/var/log/transit/api.log", cfg.Log.File)
}

func TestEnvOverrideIgnoresUnparsablePort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server.Port, cfg.Server.Port)
}
