// Package config sources runtime configuration from environment variables,
// with a best-effort dotenv file for local development.
package config

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultDBPath       = "./printbay.db"
	defaultPort         = "8080"
	defaultEnv          = "dev"
	defaultLogLevel     = "info"
	defaultMaxMeshBytes = 64 << 20 // 64 MiB upload cap
	defaultMeshTimeout  = 10 * time.Second
)

// Config holds application configuration.
type Config struct {
	Port     string
	DBPath   string
	Env      string
	LogLevel string

	// MaxMeshBytes caps how much of an uploaded mesh the analyzer will read.
	MaxMeshBytes int64
	// MeshTimeout bounds a single geometry analysis; past it the job
	// proceeds without a measurement.
	MeshTimeout time.Duration
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	cfg := Config{
		Port:         envOr("PORT", defaultPort),
		DBPath:       envOr("DB_PATH", defaultDBPath),
		Env:          envOr("ENV", defaultEnv),
		LogLevel:     envOr("LOG_LEVEL", defaultLogLevel),
		MaxMeshBytes: envInt64("MAX_MESH_BYTES", defaultMaxMeshBytes),
		MeshTimeout:  defaultMeshTimeout,
	}

	if raw := os.Getenv("MESH_TIMEOUT_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			cfg.MeshTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}

// IsDev reports whether the process runs in the local development profile,
// which auto-migrates and seeds the database on startup.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
