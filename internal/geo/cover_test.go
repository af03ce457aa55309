package geo

import (
	"math"
	"sort"
	"testing"
)

func TestPrecisionForRadius(t *testing.T) {
	tests := []struct {
		name   string
		radius float64
		factor float64
		want   int
	}{
		{name: "walking radius", radius: 500, factor: 2.0, want: 5},
		{name: "neighborhood radius", radius: 2000, factor: 2.0, want: 5},
		{name: "tight factor forces finer cells", radius: 2000, factor: 0.25, want: 6},
		{name: "city radius", radius: 150000, factor: 2.0, want: 3},
		{name: "tiny radius clamps to record precision", radius: 0.5, factor: 2.0, want: 9},
		{name: "huge radius clamps to partition length", radius: 10000000, factor: 2.0, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PrecisionForRadius(tt.radius, tt.factor, 3, 9)
			if got != tt.want {
				t.Errorf("PrecisionForRadius(%v, %v) = %d, want %d", tt.radius, tt.factor, got, tt.want)
			}
		})
	}
}

func TestCoverRadiusContainsCenterCell(t *testing.T) {
	cells := CoverRadius(40.7128, -74.0060, 500, 5)
	center := Encode(40.7128, -74.0060, 5)
	if !containsCell(cells, center) {
		t.Errorf("covering %v does not contain the center cell %q", cells, center)
	}
	if !sort.StringsAreSorted(cells) {
		t.Errorf("covering %v is not sorted", cells)
	}
}

// Every cell a point within the radius can fall into must appear in the
// covering, however many rings away from the center cell it sits.
func TestCoverRadiusCompleteness(t *testing.T) {
	tests := []struct {
		name      string
		lat       float64
		lng       float64
		radius    float64
		precision int
	}{
		{name: "small radius", lat: 40.7128, lng: -74.0060, radius: 500, precision: 5},
		{name: "radius several rings wide", lat: 40.7128, lng: -74.0060, radius: 2000, precision: 6},
		{name: "across the antimeridian", lat: 0, lng: -179.999, radius: 2000, precision: 5},
		{name: "high latitude", lat: 78.0, lng: 15.0, radius: 5000, precision: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := CoverRadius(tt.lat, tt.lng, tt.radius, tt.precision)

			// Probe points on rays from the center out to the radius; each
			// probe's cell must be in the covering.
			for deg := 0; deg < 360; deg += 15 {
				for _, frac := range []float64{0.25, 0.5, 0.9, 0.999} {
					pLat, pLng := pointAtBearing(tt.lat, tt.lng, tt.radius*frac, float64(deg))
					if pLat > 90 || pLat < -90 {
						continue
					}
					// The bearing offset is approximate; only probes that
					// verifiably lie within the circle assert membership.
					if Haversine(tt.lat, tt.lng, pLat, pLng) > tt.radius {
						continue
					}
					hash := Encode(pLat, pLng, tt.precision)
					if !containsCell(cells, hash) {
						t.Errorf("point (%v,%v) at bearing %d° dist %vm falls in %q, missing from covering %v",
							pLat, pLng, deg, tt.radius*frac, hash, cells)
					}
				}
			}
		})
	}
}

func TestCoverRadiusSeam(t *testing.T) {
	cells := CoverRadius(0, -179.999, 2000, 5)
	want := []string{"2pbpb", "80000", "rzzzz", "xbpbp"}
	if len(cells) != len(want) {
		t.Fatalf("CoverRadius() = %v, want %v", cells, want)
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Fatalf("CoverRadius() = %v, want %v", cells, want)
		}
	}
}

// A point 1900m north of the center lies three cell rows away at precision 6
// (~611m rows). A covering chained to the immediate neighbor ring would miss
// it; the ring expansion must not.
func TestCoverRadiusReachesBeyondNeighborRing(t *testing.T) {
	centerLat, centerLng := 40.7128, -74.0060
	pLat := centerLat + 1900/metersPerDegree
	cells := CoverRadius(centerLat, centerLng, 2000, 6)

	hash := Encode(pLat, centerLng, 6)
	if !containsCell(cells, hash) {
		t.Errorf("cell %q of a point 1900m north is missing from covering %v", hash, cells)
	}

	centerHash := Encode(centerLat, centerLng, 6)
	neighborRing := append(Neighbors(centerHash), centerHash)
	if containsCell(neighborRing, hash) {
		t.Fatalf("test point is within the immediate neighbor ring; pick a larger offset")
	}
}

func TestCoverRadiusTrimsDistantCells(t *testing.T) {
	lat, lng := 40.7128, -74.0060
	for _, cell := range CoverRadius(lat, lng, 500, 5) {
		b := Bounds(cell)
		corners := [4][2]float64{
			{b.MinLat, b.MinLng}, {b.MinLat, b.MaxLng},
			{b.MaxLat, b.MinLng}, {b.MaxLat, b.MaxLng},
		}
		nearest := Haversine(lat, lng, corners[0][0], corners[0][1])
		for _, c := range corners[1:] {
			if d := Haversine(lat, lng, c[0], c[1]); d < nearest {
				nearest = d
			}
		}
		// The cell edge nearest the center is closer than any corner, so a
		// generous bound: no kept cell's nearest corner may exceed the radius
		// by more than a cell diagonal.
		latDeg, lngDeg := CellSize(5)
		diagonal := Haversine(lat, lng, lat+latDeg, lng+lngDeg)
		if nearest > 500+diagonal {
			t.Errorf("cell %q is %vm away at its nearest corner, beyond radius+diagonal", cell, nearest)
		}
	}
}

func TestCoverRadiusNearPole(t *testing.T) {
	cells := CoverRadius(89.9, 0, 50000, 3)
	if len(cells) == 0 {
		t.Fatal("expected a non-empty polar covering")
	}
	center := Encode(89.9, 0, 3)
	if !containsCell(cells, center) {
		t.Errorf("polar covering %v missing center cell %q", cells, center)
	}
}

func containsCell(cells []string, hash string) bool {
	for _, c := range cells {
		if c == hash {
			return true
		}
	}
	return false
}

// pointAtBearing offsets a point by the given distance and compass bearing
// using a local flat approximation, accurate enough at test distances.
func pointAtBearing(lat, lng, meters, bearingDeg float64) (float64, float64) {
	rad := bearingDeg * math.Pi / 180
	dLat := meters * math.Cos(rad) / metersPerDegree
	cosLat := math.Cos(lat * math.Pi / 180)
	dLng := 0.0
	if cosLat > 1e-9 {
		dLng = meters * math.Sin(rad) / (metersPerDegree * cosLat)
	}
	return lat + dLat, WrapLng(lng + dLng)
}
