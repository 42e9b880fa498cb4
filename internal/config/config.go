// Package config loads application configuration from environment
// variables (optionally populated from a .env file) and command-line
// flags, resolving paths and applying defaults once at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// defaultDataDir is used when neither UPTIME_DATA_DIR nor the legacy
// DATA_DIR environment variable is set.
const defaultDataDir = "/var/lib/uptime-watcher"

// Config is the fully resolved application configuration.
type Config struct {
	DataDir  string // absolute path to the directory holding uptime.db
	Port     int    // HTTP command-surface port
	LogLevel string // "debug", "info", "warn", "error"
	DevMode  bool

	// BackupBucket, when set, enables the optional S3/R2-compatible
	// remote backup target in internal/backup. Empty disables it.
	BackupBucket          string
	BackupRegion          string
	BackupEndpoint        string // custom endpoint for R2/MinIO-style S3-compatible stores; empty uses AWS's default resolver
	BackupAccessKeyID     string
	BackupSecretAccessKey string
}

// Load reads configuration from the environment (loading a .env file
// first, if present) and an optional CLI-provided data directory
// override, which takes highest precedence.
//
// DataDir resolution order: dataDirFlag, then UPTIME_DATA_DIR, then the
// legacy DATA_DIR, then defaultDataDir. Whatever is chosen is resolved to
// an absolute path and created if missing.
func Load(dataDirFlag string) (*Config, error) {
	// Ignore a missing .env file; only a malformed one is an error.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	dataDir := dataDirFlag
	if dataDir == "" {
		dataDir = os.Getenv("UPTIME_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = os.Getenv("DATA_DIR")
	}
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory to absolute: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:               absDataDir,
		Port:                  envInt("UPTIME_PORT", 8787),
		LogLevel:              envString("UPTIME_LOG_LEVEL", "info"),
		DevMode:               envBool("UPTIME_DEV_MODE", false),
		BackupBucket:          os.Getenv("UPTIME_BACKUP_BUCKET"),
		BackupRegion:          envString("UPTIME_BACKUP_REGION", "auto"),
		BackupEndpoint:        os.Getenv("UPTIME_BACKUP_ENDPOINT"),
		BackupAccessKeyID:     os.Getenv("UPTIME_BACKUP_ACCESS_KEY_ID"),
		BackupSecretAccessKey: os.Getenv("UPTIME_BACKUP_SECRET_ACCESS_KEY"),
	}

	return cfg, nil
}

func envString(key, fallback string) string {
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

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
