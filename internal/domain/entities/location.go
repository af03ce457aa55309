// Package entities defines the location record stored in the geo table and
// the key derivation that ties its fields together.
package entities

import (
	"time"

	"friendfinder/internal/geo"
)

// RangeKeySeparator joins the full-precision geohash and the entity ID into
// the table's sort key. '#' sorts below every base32 geohash character, so
// records within a cell stay ordered by spatial locality first.
const RangeKeySeparator = "#"

// LocationRecord is one entity's point-in-time position, keyed for the
// backing table by (CellKey, RangeKey).
//
// Geohash, CellKey, and RangeKey are never independently mutable: all three
// derive deterministically from (Latitude, Longitude, EntityID). Moving an
// entity means writing a new record (and deleting the old one), not editing
// coordinates in place: the partition key is immutable in the backing store.
type LocationRecord struct {
	EntityID  string         `json:"entityId"`
	Latitude  float64        `json:"lat"`
	Longitude float64        `json:"lng"`
	Geohash   string         `json:"geohash"`
	CellKey   string         `json:"-"`
	RangeKey  string         `json:"-"`
	Attributes map[string]any `json:"attributes,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// CellKeyFor derives the table partition key from a geohash: its first
// hashKeyLength characters. The length is a fixed index parameter: changing
// it invalidates every stored cell key, so it is configured once and treated
// as immutable without a full reindex.
func CellKeyFor(geohash string, hashKeyLength int) string {
	if hashKeyLength > len(geohash) {
		hashKeyLength = len(geohash)
	}
	return geohash[:hashKeyLength]
}

// RangeKeyFor derives the table sort key: full geohash, separator, entity ID.
// The geohash prefix keeps records in a partition sorted by spatial locality;
// the entity ID suffix keeps distinct entities at the same point distinct.
func RangeKeyFor(geohash, entityID string) string {
	return geohash + RangeKeySeparator + entityID
}

// NewLocationRecord validates the coordinates and derives the geohash and
// both table keys. Out-of-range coordinates or an empty entity ID fail with a
// ValidationError before any encoding happens; coordinates are never
// silently clamped.
func NewLocationRecord(entityID string, lat, lng float64, attrs map[string]any, precision, hashKeyLength int) (*LocationRecord, error) {
	if entityID == "" {
		return nil, &ValidationError{Field: "entityId", Message: "must not be empty"}
	}
	if err := ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	hash := geo.Encode(lat, lng, precision)
	return &LocationRecord{
		EntityID:   entityID,
		Latitude:   lat,
		Longitude:  lng,
		Geohash:    hash,
		CellKey:    CellKeyFor(hash, hashKeyLength),
		RangeKey:   RangeKeyFor(hash, entityID),
		Attributes: attrs,
		UpdatedAt:  time.Now().UTC(),
	}, nil
}
