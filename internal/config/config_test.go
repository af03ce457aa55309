package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Blank out anything the host environment might have set.
	for _, key := range []string{"PORT", "STORE_BACKEND", "GEO_TABLE_NAME", "GEO_RECORD_PRECISION"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Server.Port != ":8080" {
		t.Errorf("Port = %q, want %q", cfg.Server.Port, ":8080")
	}
	if cfg.Store.Backend != "dynamodb" {
		t.Errorf("Backend = %q, want %q", cfg.Store.Backend, "dynamodb")
	}
	if cfg.Store.TableName != "GeoLocations" {
		t.Errorf("TableName = %q, want %q", cfg.Store.TableName, "GeoLocations")
	}
	if cfg.Geo.HashKeyLength != 3 || cfg.Geo.RecordPrecision != 9 {
		t.Errorf("geo keys = (%d, %d), want (3, 9)", cfg.Geo.HashKeyLength, cfg.Geo.RecordPrecision)
	}
	if cfg.Geo.CellRadiusFactor != 2.0 {
		t.Errorf("CellRadiusFactor = %v, want 2.0", cfg.Geo.CellRadiusFactor)
	}
	if cfg.Search.MaxRadiusMeters != 100000 {
		t.Errorf("MaxRadiusMeters = %v, want 100000", cfg.Search.MaxRadiusMeters)
	}
	if cfg.Search.CellQueryTimeout != 2*time.Second {
		t.Errorf("CellQueryTimeout = %v, want 2s", cfg.Search.CellQueryTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("GEO_RECORD_PRECISION", "8")
	t.Setenv("GEO_CELL_RADIUS_FACTOR", "1.5")
	t.Setenv("SEARCH_CELL_TIMEOUT_MS", "500")

	cfg := Load()
	if cfg.Server.Port != ":9090" {
		t.Errorf("Port = %q, want %q", cfg.Server.Port, ":9090")
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Backend = %q, want %q", cfg.Store.Backend, "memory")
	}
	if cfg.Geo.RecordPrecision != 8 {
		t.Errorf("RecordPrecision = %d, want 8", cfg.Geo.RecordPrecision)
	}
	if cfg.Geo.CellRadiusFactor != 1.5 {
		t.Errorf("CellRadiusFactor = %v, want 1.5", cfg.Geo.CellRadiusFactor)
	}
	if cfg.Search.CellQueryTimeout != 500*time.Millisecond {
		t.Errorf("CellQueryTimeout = %v, want 500ms", cfg.Search.CellQueryTimeout)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("GEO_RECORD_PRECISION", "not-a-number")
	t.Setenv("GEO_CELL_RADIUS_FACTOR", "also-not")

	cfg := Load()
	if cfg.Geo.RecordPrecision != 9 {
		t.Errorf("RecordPrecision = %d, want default 9", cfg.Geo.RecordPrecision)
	}
	if cfg.Geo.CellRadiusFactor != 2.0 {
		t.Errorf("CellRadiusFactor = %v, want default 2.0", cfg.Geo.CellRadiusFactor)
	}
}
