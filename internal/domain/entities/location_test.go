package entities

import (
	"errors"
	"strings"
	"testing"
)

func TestNewLocationRecord(t *testing.T) {
	record, err := NewLocationRecord("user-1", 40.7128, -74.0060, map[string]any{"name": "alice"}, 9, 3)
	if err != nil {
		t.Fatalf("NewLocationRecord() error = %v", err)
	}

	if record.Geohash != "dr5regw3p" {
		t.Errorf("Geohash = %q, want %q", record.Geohash, "dr5regw3p")
	}
	if record.CellKey != "dr5" {
		t.Errorf("CellKey = %q, want %q", record.CellKey, "dr5")
	}
	if record.RangeKey != "dr5regw3p#user-1" {
		t.Errorf("RangeKey = %q, want %q", record.RangeKey, "dr5regw3p#user-1")
	}
	if record.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
	if record.Attributes["name"] != "alice" {
		t.Errorf("Attributes = %v, want name=alice", record.Attributes)
	}
}

// The three derived fields must always agree with the coordinates and entity
// ID they were derived from.
func TestKeyDerivationConsistency(t *testing.T) {
	points := []struct {
		entityID string
		lat      float64
		lng      float64
	}{
		{"user-1", 40.7128, -74.0060},
		{"user-2", -33.8688, 151.2093},
		{"user-3", 0, 179.999},
		{"user-4", 90, 180},
		{"user-5", -90, -180},
	}

	for _, pt := range points {
		record, err := NewLocationRecord(pt.entityID, pt.lat, pt.lng, nil, 9, 3)
		if err != nil {
			t.Fatalf("NewLocationRecord(%v) error = %v", pt, err)
		}
		if !strings.HasPrefix(record.Geohash, record.CellKey) {
			t.Errorf("CellKey %q is not a prefix of Geohash %q", record.CellKey, record.Geohash)
		}
		if record.RangeKey != record.Geohash+RangeKeySeparator+pt.entityID {
			t.Errorf("RangeKey %q inconsistent with Geohash %q and EntityID %q",
				record.RangeKey, record.Geohash, pt.entityID)
		}
	}
}

func TestNewLocationRecordValidation(t *testing.T) {
	tests := []struct {
		name      string
		entityID  string
		lat       float64
		lng       float64
		wantField string
	}{
		{name: "empty entity id", entityID: "", lat: 40.7, lng: -74.0, wantField: "entityId"},
		{name: "latitude too high", entityID: "u", lat: 90.0001, lng: 0, wantField: "lat"},
		{name: "latitude too low", entityID: "u", lat: -91, lng: 0, wantField: "lat"},
		{name: "longitude too high", entityID: "u", lat: 0, lng: 180.0001, wantField: "lng"},
		{name: "longitude too low", entityID: "u", lat: 0, lng: -181, wantField: "lng"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLocationRecord(tt.entityID, tt.lat, tt.lng, nil, 9, 3)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestValidateCoordinatesBoundary(t *testing.T) {
	// The poles and the antimeridian itself are valid.
	for _, pt := range [][2]float64{{90, 0}, {-90, 0}, {0, 180}, {0, -180}} {
		if err := ValidateCoordinates(pt[0], pt[1]); err != nil {
			t.Errorf("ValidateCoordinates(%v, %v) = %v, want nil", pt[0], pt[1], err)
		}
	}
}

func TestValidateRadius(t *testing.T) {
	if err := ValidateRadius(500); err != nil {
		t.Errorf("ValidateRadius(500) = %v, want nil", err)
	}
	for _, r := range []float64{0, -1} {
		var verr *ValidationError
		if err := ValidateRadius(r); !errors.As(err, &verr) {
			t.Errorf("ValidateRadius(%v) = %v, want *ValidationError", r, err)
		}
	}
}
