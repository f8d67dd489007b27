// Package config loads runtime settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.ngs.io/climate-grid/internal/adapter/store/overrides"
)

// Config holds all settings shared by the commands and the HTTP server.
type Config struct {
	// Databases.
	CoopDSN     string
	IEMDSN      string
	MesositeDSN string

	// Grid stores.
	GridDataDir         string
	StoreAcquireTimeout time.Duration

	// Estimator.
	StationOverridesPath string
	StationCSVPath       string
	EstimatorWorkers     int
	OverwriteObserved    bool
	Location             *time.Location

	// Coverage.
	StatesShapefile string

	// Ambient.
	LogLevel       string
	LogFormat      string
	Port           string
	AllowedOrigins []string
	PushgatewayURL string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	timeout, err := time.ParseDuration(getEnv("STORE_ACQUIRE_TIMEOUT", "5m"))
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid STORE_ACQUIRE_TIMEOUT")
	}

	workers, err := strconv.Atoi(getEnv("ESTIMATOR_WORKERS", "1"))
	if err != nil || workers < 1 {
		return nil, errors.New("invalid ESTIMATOR_WORKERS: must be a positive integer")
	}

	overwrite, err := strconv.ParseBool(getEnv("ESTIMATOR_OVERWRITE_OBSERVED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid ESTIMATOR_OVERWRITE_OBSERVED: %w", err)
	}

	tz := getEnv("TIMEZONE", "America/Chicago")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	format := strings.ToLower(getEnv("LOG_FORMAT", "json"))
	if format != "json" && format != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: use json or text", format)
	}

	cfg := &Config{
		CoopDSN:              getEnv("COOP_DSN", "postgres://nobody@localhost/coop?sslmode=disable"),
		IEMDSN:               getEnv("IEM_DSN", "postgres://nobody@localhost/iem?sslmode=disable"),
		MesositeDSN:          getEnv("MESOSITE_DSN", "postgres://nobody@localhost/mesosite?sslmode=disable"),
		GridDataDir:          getEnv("GRID_DATA_DIR", "./data/iemre"),
		StoreAcquireTimeout:  timeout,
		StationOverridesPath: getEnv("STATION_OVERRIDES_PATH", overrides.DefaultPath),
		StationCSVPath:       os.Getenv("STATION_CSV_PATH"),
		EstimatorWorkers:     workers,
		OverwriteObserved:    overwrite,
		Location:             loc,
		StatesShapefile:      os.Getenv("STATES_SHAPEFILE"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            format,
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigins:       splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		PushgatewayURL:       os.Getenv("PUSHGATEWAY_URL"),
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
