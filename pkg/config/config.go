// Package config loads pipeline configuration from the environment, with
// optional .env support.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"carris2pg/pkg/enrich"
	"carris2pg/pkg/feed"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	CarrisURL        string `validate:"required,url"`
	MetropolitanaURL string `validate:"required,url"`
	DatabaseURL      string `validate:"required_unless=DryRun true"`
	LineColorsPath   string
	StagingPath      string

	Interval time.Duration `validate:"min=1000000000"` // at least 1s between polls

	GeocodeURL      string        `validate:"required,url"`
	GeocodeInterval time.Duration `validate:"min=0"`
	GeocodeTimeout  time.Duration `validate:"min=0"`
	GeocodeWorkers  int           `validate:"min=1,max=16"`

	DryRun bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first, if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		CarrisURL:        getenvDefault("CARRIS_GTFSRT_URL", feed.DefaultCarrisURL),
		MetropolitanaURL: getenvDefault("CM_VEHICLES_URL", feed.DefaultMetropolitanaURL),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		LineColorsPath:   getenvDefault("LINE_COLORS_PATH", "Line_Colors.csv"),
		StagingPath:      getenvDefault("STAGING_PATH", "bus_system_data.csv"),
		GeocodeURL:       getenvDefault("GEOCODE_URL", enrich.DefaultNominatimURL),
		DryRun:           isTrue(os.Getenv("DRY_RUN")),
	}

	var err error
	if cfg.Interval, err = durationEnv("POLL_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.GeocodeInterval, err = durationEnv("GEOCODE_MIN_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.GeocodeTimeout, err = durationEnv("GEOCODE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.GeocodeWorkers, err = intEnv("GEOCODE_WORKERS", 1); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func isTrue(s string) bool {
	switch s {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}
