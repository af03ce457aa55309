// Package geo implements geohash encoding/decoding, cell-bound math, and
// radius covering-set computation for proximity queries over a partitioned
// key-value table.
//
// A geohash encodes a latitude/longitude pair into a short base32 string with
// the property that nearby locations share a common prefix. Two points 100m
// apart might both start with "dr5regw", while a point 10km away starts with
// "dr5ru". That prefix structure is what lets a key-value store with no
// multi-dimensional range query answer "who is near me" with a handful of
// per-cell range reads.
//
// Precision determines the cell size:
//
//	1 → ~5000 km    4 → ~39 km     7 → ~153 m    10 → ~1.2 m
//	2 → ~1250 km    5 → ~5 km      8 → ~19 m     11 → ~15 cm
//	3 → ~156 km     6 → ~1.2 km    9 → ~4.8 m    12 → ~1.9 cm
//
// Records are stored at precision 9 (sub-5m points); the table partitions on
// the first 3 characters (~156 km cells), and radius queries pick an
// intermediate precision sized to the search radius.
package geo

import (
	"math"
	"strings"
)

// base32 is the geohash character set (32 characters). Note that 'a', 'i',
// 'l', and 'o' are excluded to avoid confusion with digits 0/1.
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

var base32Map = map[byte]int{}

func init() {
	for i := 0; i < len(base32); i++ {
		base32Map[base32[i]] = i
	}
}

// Box is the rectangular region covered by all points sharing a geohash
// prefix. Boxes decoded from a hash are always canonical (west edge < east
// edge): geohash cells subdivide [-180, 180] and never straddle the
// antimeridian.
type Box struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
}

// Center returns the midpoint of the box.
func (b Box) Center() (lat, lng float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLng + b.MaxLng) / 2
}

// Encode converts latitude and longitude to a geohash string with the given
// precision. Coordinates must already be validated; Encode itself never
// clamps or rejects.
//
// Algorithm (binary interleaving):
//  1. Start with the full range: lat [-90, 90], lng [-180, 180]
//  2. Alternate between longitude (even bits) and latitude (odd bits)
//  3. For each step, bisect the range and set bit=1 if value >= midpoint
//  4. Every 5 bits are encoded as one base32 character
func Encode(lat, lng float64, precision int) string {
	if precision <= 0 {
		precision = 9
	}
	if precision > 12 {
		precision = 12
	}

	minLat, maxLat := -90.0, 90.0
	minLng, maxLng := -180.0, 180.0

	var hash strings.Builder
	isEven := true
	bit := 0
	ch := 0

	for hash.Len() < precision {
		if isEven {
			mid := (minLng + maxLng) / 2
			if lng >= mid {
				ch |= 1 << (4 - bit)
				minLng = mid
			} else {
				maxLng = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		isEven = !isEven
		bit++
		if bit == 5 {
			hash.WriteByte(base32[ch])
			bit = 0
			ch = 0
		}
	}

	return hash.String()
}

// Bounds returns the bounding box of the cell identified by hash, recovered
// by replaying the binary subdivision. Unknown characters are skipped, which
// matches Decode's tolerance for malformed input.
func Bounds(hash string) Box {
	minLat, maxLat := -90.0, 90.0
	minLng, maxLng := -180.0, 180.0
	isEven := true

	for i := 0; i < len(hash); i++ {
		cd, ok := base32Map[hash[i]]
		if !ok {
			continue
		}
		for j := 4; j >= 0; j-- {
			bit := (cd >> j) & 1
			if isEven {
				mid := (minLng + maxLng) / 2
				if bit == 1 {
					minLng = mid
				} else {
					maxLng = mid
				}
			} else {
				mid := (minLat + maxLat) / 2
				if bit == 1 {
					minLat = mid
				} else {
					maxLat = mid
				}
			}
			isEven = !isEven
		}
	}

	return Box{MinLat: minLat, MinLng: minLng, MaxLat: maxLat, MaxLng: maxLng}
}

// Decode converts a geohash string back to the center latitude and longitude
// of the encoded cell.
func Decode(hash string) (lat, lng float64) {
	return Bounds(hash).Center()
}

// CellSize returns the height and width of a cell at the given precision, in
// degrees. Each base32 character consumes 5 bits; longitude gets the extra
// bit at odd bit counts because interleaving starts with longitude.
func CellSize(precision int) (latDeg, lngDeg float64) {
	lngBits := (5*precision + 1) / 2
	latBits := (5 * precision) / 2
	return 180 / math.Exp2(float64(latBits)), 360 / math.Exp2(float64(lngBits))
}

// shift returns the hash of the cell dLat rows north and dLng columns east of
// the given cell, at the same precision. Longitude wraps circularly at the
// ±180° antimeridian. Latitude does not wrap: stepping past a pole has no
// adjacent cell, and shift reports ok=false for it.
//
// Neighbors are computed arithmetically from the cell bounds rather than via
// the classic per-character lookup tables: stepping by exactly one cell
// height/width from the cell center always lands inside the adjacent cell,
// and re-encoding the shifted point yields its hash. This handles border
// characters, the antimeridian, and the poles uniformly.
func shift(hash string, dLat, dLng int) (string, bool) {
	if len(hash) == 0 {
		return "", false
	}
	b := Bounds(hash)
	lat, lng := b.Center()
	lat += float64(dLat) * (b.MaxLat - b.MinLat)
	lng += float64(dLng) * (b.MaxLng - b.MinLng)

	if lat >= 90 || lat <= -90 {
		return "", false
	}
	return Encode(lat, WrapLng(lng), len(hash)), true
}

// Neighbor returns the adjacent cell in the given compass direction
// ("n", "s", "e", "w", "ne", "nw", "se", "sw") and whether it exists.
// North/south neighbors of cells touching a pole do not exist.
func Neighbor(hash, direction string) (string, bool) {
	var dLat, dLng int
	for i := 0; i < len(direction); i++ {
		switch direction[i] {
		case 'n':
			dLat = 1
		case 's':
			dLat = -1
		case 'e':
			dLng = 1
		case 'w':
			dLng = -1
		default:
			return "", false
		}
	}
	if dLat == 0 && dLng == 0 {
		return "", false
	}
	return shift(hash, dLat, dLng)
}

// Neighbors returns the adjacent cells of hash at the same precision: up to 8
// of them, fewer for cells touching a pole (there is no cell north of the
// north pole, so its north and diagonal-north neighbors don't exist). The
// center cell itself is not included.
func Neighbors(hash string) []string {
	out := make([]string, 0, 8)
	for _, d := range [8][2]int{
		{1, 0}, {-1, 0}, {0, 1}, {0, -1},
		{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
	} {
		if n, ok := shift(hash, d[0], d[1]); ok {
			out = append(out, n)
		}
	}
	return out
}

// WrapLng normalizes a longitude into [-180, 180), wrapping circularly
// across the antimeridian.
func WrapLng(lng float64) float64 {
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}
