package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultQueryURL is the SIGEL aerogeradores layer query endpoint.
const DefaultQueryURL = "https://sigel.aneel.gov.br/arcgis/rest/services/PORTAL/WFS/MapServer/0/query"

// MaxBatchSize is the query service's maxRecordCount.
const MaxBatchSize = 1000

// Config holds all job settings, populated from environment variables.
type Config struct {
	QueryURL    string
	BatchSize   int
	HTTPTimeout time.Duration
	OutputPath  string
	Location    *time.Location

	HTTPAddr        string
	MetricsFile     string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	httpTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("HTTP_TIMEOUT", "60s"))
	if err != nil || httpTimeout <= 0 {
		return nil, errors.New("invalid HTTP_TIMEOUT")
	}

	batchSize, err := parseBatchSize()
	if err != nil {
		return nil, err
	}

	tz := sharedcfg.EnvOrDefault("TIMEZONE", "America/Sao_Paulo")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	cfg := &Config{
		QueryURL:    sharedcfg.EnvOrDefault("SIGEL_QUERY_URL", DefaultQueryURL),
		BatchSize:   batchSize,
		HTTPTimeout: httpTimeout,
		OutputPath:  sharedcfg.EnvOrDefault("OUTPUT_PATH", "data.csv"),
		Location:    loc,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ""),
		MetricsFile:     sharedcfg.EnvOrDefault("METRICS_FILE", ""),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	u, err := url.Parse(cfg.QueryURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New("SIGEL_QUERY_URL must be an absolute http(s) URL")
	}
	if cfg.OutputPath == "" {
		return nil, errors.New("OUTPUT_PATH is required")
	}

	return cfg, nil
}

// parseBatchSize defaults to the service's maxRecordCount rather than the
// shared default of 50, which would multiply the number of queries.
func parseBatchSize() (int, error) {
	if os.Getenv("BATCH_SIZE") == "" {
		return MaxBatchSize, nil
	}
	return sharedcfg.ParseBatchSize()
}
