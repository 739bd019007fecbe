// Package config loads the storage server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/harlley/mekane-share/internal/types"
)

// Backend selects which object store implementation the server uses.
const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

type Config struct {
	Port string
	// PublicURL is the externally visible base URL embedded in share links.
	PublicURL string
	// Storage backend selection
	StorageBackend  string
	GCSBucket       string
	LocalStorageDir string
	// Optional upload audit database
	DatabaseURL string
	// Retention sweep
	CleanupSchedule string
	CleanupEnabled  bool
	// HTTP server
	ShutdownTimeoutSeconds int
}

// Environment variable names used by the server.
const (
	EnvPort            = "PORT"
	EnvPublicURL       = "PUBLIC_URL"
	EnvStorageBackend  = "STORAGE_BACKEND"
	EnvGCSBucket       = "GCS_BUCKET"
	EnvLocalStorageDir = "STORAGE_DIR"
	EnvDatabaseURL     = "DATABASE_URL"
	EnvCleanupSchedule = "CLEANUP_SCHEDULE"
	EnvCleanupEnabled  = "CLEANUP_ENABLED"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT_SECONDS"
)

// collectOptional reads optional env vars and applies defaults when empty.
func collectOptional(defaults map[string]string) map[string]string {
	values := make(map[string]string, len(defaults))
	for k, def := range defaults {
		v := strings.TrimSpace(os.Getenv(k))
		if v == "" {
			v = def
		}
		values[k] = v
	}
	return values
}

func Load() Config {
	optional := collectOptional(map[string]string{
		EnvPort:            "8080",
		EnvPublicURL:       "http://localhost:8080",
		EnvStorageBackend:  BackendLocal,
		EnvLocalStorageDir: "./data",
		EnvCleanupSchedule: "@hourly",
		EnvCleanupEnabled:  "true",
		EnvShutdownTimeout: "10",
	})

	backend := strings.ToLower(optional[EnvStorageBackend])
	if backend != BackendLocal && backend != BackendGCS {
		panic(fmt.Sprintf("invalid %s: must be %q or %q", EnvStorageBackend, BackendLocal, BackendGCS))
	}

	bucket := strings.TrimSpace(os.Getenv(EnvGCSBucket))
	if backend == BackendGCS && bucket == "" {
		panic(fmt.Sprintf("%s is required when %s=%s", EnvGCSBucket, EnvStorageBackend, BackendGCS))
	}

	shutdown, err := strconv.Atoi(optional[EnvShutdownTimeout])
	if err != nil || shutdown < 1 {
		panic(fmt.Sprintf("invalid %s: must be positive integer seconds", EnvShutdownTimeout))
	}

	cleanupEnabled, err := strconv.ParseBool(optional[EnvCleanupEnabled])
	if err != nil {
		panic(fmt.Sprintf("invalid %s: must be a boolean", EnvCleanupEnabled))
	}

	return Config{
		Port:                   optional[EnvPort],
		PublicURL:              types.NormalizeBaseURL(optional[EnvPublicURL]),
		StorageBackend:         backend,
		GCSBucket:              bucket,
		LocalStorageDir:        optional[EnvLocalStorageDir],
		DatabaseURL:            strings.TrimSpace(os.Getenv(EnvDatabaseURL)),
		CleanupSchedule:        optional[EnvCleanupSchedule],
		CleanupEnabled:         cleanupEnabled,
		ShutdownTimeoutSeconds: shutdown,
	}
}
