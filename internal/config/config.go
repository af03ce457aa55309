// Package config centralizes all application configuration into typed
// structs. Values come from the environment exactly once, at startup; core
// packages receive the structs through constructors and never read the
// environment themselves, which keeps them pure and testable.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the top-level configuration container.
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Geo    GeoConfig
	Search SearchConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// APIToken is the bearer token the boundary capability check accepts.
	// Empty disables the check (local development).
	APIToken string
}

// StoreConfig selects and tunes the backing table.
type StoreConfig struct {
	// Backend is "dynamodb" or "memory".
	Backend         string
	TableName       string
	EntityIndexName string
	Region          string
	// Endpoint overrides the DynamoDB endpoint (local emulators).
	Endpoint    string
	ReadRetries int
	ReadBackoff time.Duration
}

// GeoConfig fixes the index geometry. HashKeyLength is chosen once for the
// lifetime of a table: every stored cell key derives from it, so changing it
// means reindexing every record.
type GeoConfig struct {
	HashKeyLength   int
	RecordPrecision int
	// CellRadiusFactor sizes covering cells relative to the search radius; at
	// 2.0 a cell edge is at least twice the radius.
	CellRadiusFactor float64
	// MaxCoveringCells caps the per-query covering set; the engine coarsens
	// precision until the covering fits.
	MaxCoveringCells int
}

// SearchConfig bounds radius queries.
type SearchConfig struct {
	MaxRadiusMeters float64
	DefaultLimit    int32
	MaxLimit        int32
	// CellQueryTimeout bounds each per-cell read; a timed-out cell degrades
	// the response to a partial result instead of failing the query.
	CellQueryTimeout time.Duration
	// CellConcurrency bounds the fan-out worker pool for unpaginated queries.
	CellConcurrency int
}

// Load populates a Config from the environment, falling back to defaults
// that work against DynamoDB Local out of the box.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":" + getEnv("PORT", "8080"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			APIToken:     os.Getenv("API_TOKEN"),
		},
		Store: StoreConfig{
			Backend:         getEnv("STORE_BACKEND", "dynamodb"),
			TableName:       getEnv("GEO_TABLE_NAME", "GeoLocations"),
			EntityIndexName: getEnv("GEO_ENTITY_INDEX", "entityId-index"),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        os.Getenv("DYNAMODB_ENDPOINT"),
			ReadRetries:     getEnvInt("STORE_READ_RETRIES", 3),
			ReadBackoff:     time.Duration(getEnvInt("STORE_READ_BACKOFF_MS", 100)) * time.Millisecond,
		},
		Geo: GeoConfig{
			HashKeyLength:    getEnvInt("GEO_HASH_KEY_LENGTH", 3),
			RecordPrecision:  getEnvInt("GEO_RECORD_PRECISION", 9),
			CellRadiusFactor: getEnvFloat("GEO_CELL_RADIUS_FACTOR", 2.0),
			MaxCoveringCells: getEnvInt("GEO_MAX_COVERING_CELLS", 512),
		},
		Search: SearchConfig{
			MaxRadiusMeters:  getEnvFloat("SEARCH_MAX_RADIUS_M", 100000),
			DefaultLimit:     int32(getEnvInt("SEARCH_DEFAULT_LIMIT", 0)),
			MaxLimit:         int32(getEnvInt("SEARCH_MAX_LIMIT", 1000)),
			CellQueryTimeout: time.Duration(getEnvInt("SEARCH_CELL_TIMEOUT_MS", 2000)) * time.Millisecond,
			CellConcurrency:  getEnvInt("SEARCH_CELL_CONCURRENCY", 8),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
