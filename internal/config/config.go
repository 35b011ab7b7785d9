// Package config loads the api binary's configuration from an optional YAML
// file plus environment variables (.env aware). Flags in cmd/api override
// both.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port int    `yaml:"port" validate:"gt=0,lte=65535"`
	Env  string `yaml:"env" validate:"omitempty,oneof=development test staging production"`
}

type FeedConfig struct {
	// SourceURL is the static feed archive; a plain path loads a local file.
	SourceURL string `yaml:"sourceURL" validate:"required"`

	// CachePath is the SQLite snapshot cache. Empty disables caching.
	CachePath string `yaml:"cachePath"`

	// MaxCacheAge bounds how old a cached snapshot may be for a warm start.
	MaxCacheAge time.Duration `yaml:"maxCacheAge"`

	// RefreshInterval between background re-ingestions. Zero disables.
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

type RealtimeConfig struct {
	TripUpdatesURL      string        `yaml:"tripUpdatesURL" validate:"omitempty,url"`
	VehiclePositionsURL string        `yaml:"vehiclePositionsURL" validate:"omitempty,url"`
	AuthHeaderKey       string        `yaml:"authHeaderKey"`
	AuthHeaderValue     string        `yaml:"authHeaderValue"`
	RefreshInterval     time.Duration `yaml:"refreshInterval"`
}

type LogConfig struct {
	// File enables rotating file output in addition to stdout.
	File string `yaml:"file"`
}

type AppConfig struct {
	Server   ServerConfig   `yaml:"server" validate:"required"`
	Feed     FeedConfig     `yaml:"feed" validate:"required"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Log      LogConfig      `yaml:"log"`
}

// Defaults returns a config with workable development values.
func Defaults() AppConfig {
	return AppConfig{
		Server: ServerConfig{Port: 4000, Env: "development"},
		Feed: FeedConfig{
			SourceURL:       "https://www.thebus.org/transitdata/production/google_transit.zip",
			CachePath:       "transit_cache.db",
			MaxCacheAge:     24 * time.Hour,
			RefreshInterval: 24 * time.Hour,
		},
		Realtime: RealtimeConfig{RefreshInterval: 30 * time.Second},
	}
}

// Load builds the configuration: defaults, overlaid by the YAML file at
// path (when non-empty), overlaid by environment variables. A missing .env
// file is not an error.
func Load(path string) (AppConfig, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = n
		}
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Server.Env = env
	}
	if url := os.Getenv("TRANSIT_FEED_URL"); url != "" {
		cfg.Feed.SourceURL = url
	}
	if path := os.Getenv("TRANSIT_CACHE_PATH"); path != "" {
		cfg.Feed.CachePath = path
	}
	if url := os.Getenv("TRIP_UPDATES_URL"); url != "" {
		cfg.Realtime.TripUpdatesURL = url
	}
	if url := os.Getenv("VEHICLE_POSITIONS_URL"); url != "" {
		cfg.Realtime.VehiclePositionsURL = url
	}
	if key := os.Getenv("REALTIME_AUTH_HEADER_KEY"); key != "" {
		cfg.Realtime.AuthHeaderKey = key
	}
	if value := os.Getenv("REALTIME_AUTH_HEADER_VALUE"); value != "" {
		cfg.Realtime.AuthHeaderValue = value
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		cfg.Log.File = file
	}
}
