package geo

import (
	"math"
	"sort"
)

// metersPerDegree is the arc length of one degree along any great circle of
// the reference sphere (π·R/180). Using the same sphere as Haversine keeps
// the covering box and the exact-distance filter consistent with each other.
const metersPerDegree = math.Pi * EarthRadiusMeters / 180

// PrecisionForRadius picks the geohash precision used to cover a search
// circle: the finest precision whose cell edge is still at least
// factor×radius. Coarser cells keep the number of per-cell queries small for
// big radii; finer cells keep the false-positive rate down for small ones.
// The result is clamped to [minPrecision, maxPrecision]; minPrecision is
// normally the table's partition-key length, since covering cells coarser
// than a partition would fan one cell out over many partitions.
func PrecisionForRadius(radiusMeters, factor float64, minPrecision, maxPrecision int) int {
	if minPrecision < 1 {
		minPrecision = 1
	}
	if maxPrecision < minPrecision {
		maxPrecision = minPrecision
	}
	for p := maxPrecision; p > minPrecision; p-- {
		latDeg, _ := CellSize(p)
		// Cell height is the short edge (width is equal or double).
		if latDeg*metersPerDegree >= factor*radiusMeters {
			return p
		}
	}
	return minPrecision
}

// CoverRadius returns the geohash cells at the given precision whose bounds
// intersect the circle of radiusMeters around (lat, lng), sorted
// lexicographically. Every point within the radius falls in one of the
// returned cells, however far from the center cell it sits: the covering
// expands with the radius instead of stopping at a fixed 3×3 block.
//
// The circle's bounding box is enumerated row by row at cell-size steps;
// longitude wraps across the antimeridian, latitude clips at the poles. Cells
// whose nearest point lies beyond the radius are trimmed.
func CoverRadius(lat, lng, radiusMeters float64, precision int) []string {
	latDeg, lngDeg := CellSize(precision)

	latDelta := radiusMeters / metersPerDegree
	minLat := math.Max(lat-latDelta, -90)
	maxLat := math.Min(lat+latDelta, 90)

	// Longitude degrees shrink toward the poles; size the span for the most
	// poleward row of the box so no column is missed.
	maxAbsLat := math.Max(math.Abs(minLat), math.Abs(maxLat))
	cosLat := math.Cos(maxAbsLat * math.Pi / 180)
	lngDelta := 180.0
	if cosLat > 1e-9 {
		lngDelta = math.Min(radiusMeters/(metersPerDegree*cosLat), 180)
	}

	rows := int(math.Ceil((maxLat-minLat)/latDeg)) + 1
	cols := int(math.Ceil(2*lngDelta/lngDeg)) + 1
	if float64(cols) > 360/lngDeg {
		cols = int(360 / lngDeg)
	}

	seen := make(map[string]struct{})
	for i := 0; i <= rows; i++ {
		sampleLat := minLat + float64(i)*latDeg
		if sampleLat > 90 {
			break
		}
		for j := 0; j <= cols; j++ {
			sampleLng := WrapLng(lng - lngDelta + float64(j)*lngDeg)
			hash := Encode(sampleLat, sampleLng, precision)
			if _, ok := seen[hash]; ok {
				continue
			}
			if boxIntersectsCircle(Bounds(hash), lat, lng, radiusMeters) {
				seen[hash] = struct{}{}
			}
		}
	}

	cells := make([]string, 0, len(seen))
	for hash := range seen {
		cells = append(cells, hash)
	}
	sort.Strings(cells)
	return cells
}

// boxIntersectsCircle reports whether any point of the box lies within
// radiusMeters of the center, by measuring the distance to the nearest point
// of the box. Longitude nearness is evaluated circularly so boxes across the
// antimeridian from the center are handled.
func boxIntersectsCircle(b Box, lat, lng, radiusMeters float64) bool {
	nearestLat := math.Max(b.MinLat, math.Min(lat, b.MaxLat))

	width := b.MaxLng - b.MinLng
	offset := WrapLng(lng - b.MinLng)
	var nearestLng float64
	switch {
	case offset >= 0 && offset <= width:
		nearestLng = lng
	case math.Abs(WrapLng(lng-b.MinLng)) <= math.Abs(WrapLng(lng-b.MaxLng)):
		nearestLng = b.MinLng
	default:
		nearestLng = b.MaxLng
	}

	return Haversine(lat, lng, nearestLat, nearestLng) <= radiusMeters
}
