// Package config loads roomtrack settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"roomtrack/internal/blob"
	"roomtrack/internal/core"
)

// Metrics backends accepted by ROOMTRACK_METRICS.
const (
	MetricsPrometheus = "prometheus"
	MetricsExpvar     = "expvar"
	MetricsNone       = "none"
)

// Config holds application configuration.
type Config struct {
	HTTPAddr       string
	LogLevel       string
	LogDevelopment bool
	Metrics        string
	CORSOrigins    []string
	RoomResolution core.ResolutionMode
	Storage        core.StorageConfig
	Blob           blob.Config
	MigrateVerbose bool
}

// LoadDotEnv reads path (".env" when empty) into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr: GetEnv("ROOMTRACK_HTTP_ADDR", ":8080"),
		LogLevel: GetEnv("ROOMTRACK_LOG_LEVEL", "info"),
		Metrics:  strings.ToLower(GetEnv("ROOMTRACK_METRICS", MetricsPrometheus)),
		Storage: core.StorageConfig{
			Driver:      core.StorageDriver(GetEnv("ROOMTRACK_STORAGE_DRIVER", string(core.StorageSQLite))),
			SQLitePath:  GetEnv("ROOMTRACK_SQLITE_PATH", "roomtrack.db"),
			PostgresDSN: GetEnv("ROOMTRACK_POSTGRES_DSN", ""),
		},
		Blob: blob.Config{
			Driver: blob.Driver(GetEnv("ROOMTRACK_BLOB_DRIVER", string(blob.DriverFilesystem))),
			FSRoot: GetEnv("ROOMTRACK_BLOB_FS_ROOT", "./exports"),
			S3: blob.S3Config{
				Bucket:          GetEnv("ROOMTRACK_BLOB_S3_BUCKET", ""),
				Region:          GetEnv("ROOMTRACK_BLOB_S3_REGION", "us-east-1"),
				Endpoint:        GetEnv("ROOMTRACK_BLOB_S3_ENDPOINT", ""),
				AccessKeyID:     GetEnv("ROOMTRACK_BLOB_S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: GetEnv("ROOMTRACK_BLOB_S3_SECRET_ACCESS_KEY", ""),
			},
		},
	}

	var err error
	if cfg.LogDevelopment, err = getBool("ROOMTRACK_LOG_DEVELOPMENT", false); err != nil {
		return nil, err
	}
	if cfg.MigrateVerbose, err = getBool("ROOMTRACK_MIGRATE_VERBOSE", false); err != nil {
		return nil, err
	}
	if cfg.Blob.S3.PathStyle, err = getBool("ROOMTRACK_BLOB_S3_PATH_STYLE", false); err != nil {
		return nil, err
	}
	if cfg.RoomResolution, err = core.ParseResolutionMode(GetEnv("ROOMTRACK_ROOM_RESOLUTION", "")); err != nil {
		return nil, err
	}
	switch cfg.Metrics {
	case MetricsPrometheus, MetricsExpvar, MetricsNone:
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", cfg.Metrics)
	}
	cfg.CORSOrigins = splitList(GetEnv("ROOMTRACK_CORS_ORIGINS", ""))
	return cfg, nil
}

// GetEnv retrieves an environment variable or returns a default value.
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
