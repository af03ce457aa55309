package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"friendfinder/internal/domain/entities"
	"friendfinder/internal/geo"
	"friendfinder/internal/repository"
)

// RecordWithDistance annotates a matching record with its great-circle
// distance from the query center.
type RecordWithDistance struct {
	Record         *entities.LocationRecord `json:"record"`
	DistanceMeters float64                  `json:"distanceMeters"`
}

// NearbyResult is a radius query response. Incomplete is set when one or more
// candidate cells failed or timed out; the query still returns everything the
// healthy cells produced, and FailedCells tells the caller what to retry.
type NearbyResult struct {
	Items       []RecordWithDistance `json:"items"`
	NextToken   string               `json:"nextToken,omitempty"`
	Incomplete  bool                 `json:"incomplete,omitempty"`
	FailedCells []string             `json:"failedCells,omitempty"`
}

// NearbyQuery is the input to FindNearby. Limit == 0 returns all matches in
// one response; Limit > 0 returns at most that many and a continuation token
// when more cells or records remain. Token resumes a prior limited query and
// is opaque to callers.
type NearbyQuery struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
	Limit        int32
	Token        string
}

// continuationToken carries a limited query's progress: the covering cells
// not yet exhausted (current cell first) and the sort key to resume the
// current cell after. Serialized as base64 JSON; the shape is private to this
// package.
type continuationToken struct {
	Radius float64  `json:"r"`
	Cells  []string `json:"c"`
	Resume string   `json:"p,omitempty"`
}

func encodeToken(t continuationToken) string {
	raw, _ := json.Marshal(t)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeToken(s string) (continuationToken, error) {
	var t continuationToken
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err == nil {
		err = json.Unmarshal(raw, &t)
	}
	if err != nil || len(t.Cells) == 0 {
		return t, &entities.ValidationError{Field: "token", Message: "not a continuation token from this service"}
	}
	return t, nil
}

// FindNearby returns every stored record within RadiusMeters of the center,
// by exact great-circle distance.
//
// The engine works coarse to fine, the covering expanding ring by ring with
// the radius rather than stopping at the center cell's immediate neighbors:
//  1. pick a covering precision sized to the radius,
//  2. enumerate every cell intersecting the search circle,
//  3. range-read each cell from the store,
//  4. discard candidates beyond the radius (cells are squares and the query
//     is a circle, so corner records are false positives),
//  5. sort survivors by distance.
//
// Failed cells degrade the response (Incomplete + FailedCells), they don't
// abort it.
func (s *LocationService) FindNearby(ctx context.Context, q NearbyQuery) (*NearbyResult, error) {
	if err := entities.ValidateCoordinates(q.Lat, q.Lng); err != nil {
		return nil, err
	}
	if err := entities.ValidateRadius(q.RadiusMeters); err != nil {
		return nil, err
	}
	if s.search.MaxRadiusMeters > 0 && q.RadiusMeters > s.search.MaxRadiusMeters {
		return nil, &entities.ValidationError{
			Field:   "radius",
			Message: fmt.Sprintf("%v exceeds maximum %v", q.RadiusMeters, s.search.MaxRadiusMeters),
		}
	}

	limit := q.Limit
	if limit == 0 {
		limit = s.search.DefaultLimit
	}
	if s.search.MaxLimit > 0 && limit > s.search.MaxLimit {
		limit = s.search.MaxLimit
	}

	var cells []string
	resume := ""
	if q.Token != "" {
		token, err := decodeToken(q.Token)
		if err != nil {
			return nil, err
		}
		cells, resume = token.Cells, token.Resume
	} else {
		cells = s.coveringCells(q.Lat, q.Lng, q.RadiusMeters)
	}

	if limit > 0 {
		return s.findNearbyPaged(ctx, q, cells, resume, limit)
	}
	return s.findNearbyFanOut(ctx, q, cells)
}

// coveringCells picks the covering precision for the radius and coarsens it
// until the cell count fits the configured cap. Precision never drops below
// the partition-key length: a coarser covering cell would span multiple
// partitions and stop mapping onto single range queries.
func (s *LocationService) coveringCells(lat, lng, radiusMeters float64) []string {
	precision := geo.PrecisionForRadius(radiusMeters, s.geo.CellRadiusFactor, s.geo.HashKeyLength, s.geo.RecordPrecision)

	cells := geo.CoverRadius(lat, lng, radiusMeters, precision)
	for s.geo.MaxCoveringCells > 0 && len(cells) > s.geo.MaxCoveringCells && precision > s.geo.HashKeyLength {
		precision--
		cells = geo.CoverRadius(lat, lng, radiusMeters, precision)
	}

	s.logger.Debug("radius covering computed",
		zap.Float64("radiusMeters", radiusMeters),
		zap.Int("precision", precision),
		zap.Int("cells", len(cells)))
	return cells
}

// findNearbyFanOut reads all covering cells concurrently with a bounded
// worker pool and merges after the last cell finishes or times out.
func (s *LocationService) findNearbyFanOut(ctx context.Context, q NearbyQuery, cells []string) (*NearbyResult, error) {
	var (
		mu     sync.Mutex
		result NearbyResult
	)

	g, gctx := errgroup.WithContext(ctx)
	if s.search.CellConcurrency > 0 {
		g.SetLimit(s.search.CellConcurrency)
	}

	for _, cell := range cells {
		cell := cell
		g.Go(func() error {
			matches, err := s.scanCell(gctx, cell, q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// One bad cell degrades the response, it doesn't fail it.
				result.Incomplete = true
				result.FailedCells = append(result.FailedCells, cell)
				s.logger.Warn("cell read failed", zap.String("cell", cell), zap.Error(err))
				return nil
			}
			result.Items = append(result.Items, matches...)
			return nil
		})
	}
	_ = g.Wait()

	sortByDistance(result.Items)
	sort.Strings(result.FailedCells)
	if result.Items == nil {
		result.Items = []RecordWithDistance{}
	}
	return &result, nil
}

// scanCell reads one covering cell to exhaustion under the per-cell timeout
// and returns the records that survive the exact-distance filter.
func (s *LocationService) scanCell(ctx context.Context, cell string, q NearbyQuery) ([]RecordWithDistance, error) {
	if s.search.CellQueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.search.CellQueryTimeout)
		defer cancel()
	}

	cellKey := entities.CellKeyFor(cell, s.geo.HashKeyLength)
	var matches []RecordWithDistance
	start := ""
	for {
		page, err := s.repo.QueryCell(ctx, cellKey, cell, start, 0)
		if err != nil {
			return nil, err
		}
		for _, record := range page.Records {
			d := geo.Haversine(q.Lat, q.Lng, record.Latitude, record.Longitude)
			if d <= q.RadiusMeters {
				matches = append(matches, RecordWithDistance{Record: record, DistanceMeters: d})
			}
		}
		if page.NextRangeKey == "" {
			return matches, nil
		}
		start = page.NextRangeKey
	}
}

// findNearbyPaged walks the covering cells sequentially so progress can be
// captured in a continuation token: (remaining cells, position within the
// current cell). Sequential order is the price of resumability.
func (s *LocationService) findNearbyPaged(ctx context.Context, q NearbyQuery, cells []string, resume string, limit int32) (*NearbyResult, error) {
	result := NearbyResult{Items: []RecordWithDistance{}}

	for ci := 0; ci < len(cells); ci++ {
		cell := cells[ci]
		cellKey := entities.CellKeyFor(cell, s.geo.HashKeyLength)

		for {
			remaining := limit - int32(len(result.Items))
			page, err := s.queryCellOnce(ctx, cellKey, cell, resume, remaining)
			if err != nil {
				result.Incomplete = true
				result.FailedCells = append(result.FailedCells, cell)
				s.logger.Warn("cell read failed", zap.String("cell", cell), zap.Error(err))
				break
			}

			lastSeen := resume
			for _, record := range page.Records {
				lastSeen = record.RangeKey
				d := geo.Haversine(q.Lat, q.Lng, record.Latitude, record.Longitude)
				if d > q.RadiusMeters {
					continue
				}
				result.Items = append(result.Items, RecordWithDistance{Record: record, DistanceMeters: d})
				if int32(len(result.Items)) == limit {
					result.NextToken = encodeToken(continuationToken{
						Radius: q.RadiusMeters,
						Cells:  cells[ci:],
						Resume: lastSeen,
					})
					sortByDistance(result.Items)
					return &result, nil
				}
			}

			if page.NextRangeKey == "" {
				break
			}
			resume = page.NextRangeKey
		}
		resume = ""
	}

	sortByDistance(result.Items)
	return &result, nil
}

func (s *LocationService) queryCellOnce(ctx context.Context, cellKey, prefix, start string, limit int32) (*repository.CellPage, error) {
	if s.search.CellQueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.search.CellQueryTimeout)
		defer cancel()
	}
	return s.repo.QueryCell(ctx, cellKey, prefix, start, limit)
}

func sortByDistance(items []RecordWithDistance) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].DistanceMeters < items[j].DistanceMeters
	})
}
