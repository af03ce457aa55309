package entities

import "fmt"

// ValidationError reports a malformed or out-of-range input field. It is
// never retried and surfaces to the caller immediately with field-level
// detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ValidateCoordinates rejects latitudes outside [-90, 90] and longitudes
// outside [-180, 180]. A record with out-of-range values would land in a
// bogus cell and silently vanish from radius queries, so it must never be
// written.
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return &ValidationError{Field: "lat", Message: fmt.Sprintf("%v is outside [-90, 90]", lat)}
	}
	if lng < -180 || lng > 180 {
		return &ValidationError{Field: "lng", Message: fmt.Sprintf("%v is outside [-180, 180]", lng)}
	}
	return nil
}

// ValidateRadius rejects non-positive search radii.
func ValidateRadius(radiusMeters float64) error {
	if radiusMeters <= 0 {
		return &ValidationError{Field: "radius", Message: fmt.Sprintf("%v must be positive", radiusMeters)}
	}
	return nil
}
