// Package memory implements the location repository on in-process maps. It
// backs unit tests and the local development mode, and mirrors the backing
// table's semantics exactly: rows keyed by (cellKey, rangeKey), last writer
// wins, sort-key-ordered range reads within a cell.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"friendfinder/internal/domain/entities"
	"friendfinder/internal/repository"
)

// LocationRepository stores records in two synchronized indices:
//   - cells: cellKey → rangeKey → record (the "table")
//   - byEntity: entityID → set of records (the "secondary index")
//
// The dual-index pattern trades write-time bookkeeping for O(1) lookup by
// either key, the same trade the backing table makes with its entity-ID
// secondary index. byEntity holds a set, not a single record, because an
// unreconciled relocation legitimately leaves one entity with rows in two
// cells.
type LocationRepository struct {
	mu       sync.RWMutex
	cells    map[string]map[string]*entities.LocationRecord
	byEntity map[string]map[string]*entities.LocationRecord // entityID → rangeKey → record
}

func NewLocationRepository() *LocationRepository {
	return &LocationRepository{
		cells:    make(map[string]map[string]*entities.LocationRecord),
		byEntity: make(map[string]map[string]*entities.LocationRecord),
	}
}

// Put upserts the row at (CellKey, RangeKey). Writing the same keys twice
// leaves exactly one row.
func (r *LocationRepository) Put(ctx context.Context, record *entities.LocationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cell, ok := r.cells[record.CellKey]
	if !ok {
		cell = make(map[string]*entities.LocationRecord)
		r.cells[record.CellKey] = cell
	}
	cell[record.RangeKey] = record

	byEntity, ok := r.byEntity[record.EntityID]
	if !ok {
		byEntity = make(map[string]*entities.LocationRecord)
		r.byEntity[record.EntityID] = byEntity
	}
	byEntity[record.RangeKey] = record

	return nil
}

// QueryCell returns the cell's records in sort-key order, restricted to the
// geohash prefix, resuming strictly after startRangeKey, truncated to limit.
func (r *LocationRepository) QueryCell(ctx context.Context, cellKey, geohashPrefix, startRangeKey string, limit int32) (*repository.CellPage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cell := r.cells[cellKey]
	keys := make([]string, 0, len(cell))
	for rk := range cell {
		if strings.HasPrefix(rk, geohashPrefix) && rk > startRangeKey {
			keys = append(keys, rk)
		}
	}
	sort.Strings(keys)

	page := &repository.CellPage{}
	for _, rk := range keys {
		if limit > 0 && int32(len(page.Records)) == limit {
			page.NextRangeKey = page.Records[len(page.Records)-1].RangeKey
			break
		}
		page.Records = append(page.Records, cell[rk])
	}
	return page, nil
}

// Delete removes the row at (cellKey, rangeKey) from both indices.
func (r *LocationRepository) Delete(ctx context.Context, cellKey, rangeKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cell, ok := r.cells[cellKey]
	if !ok {
		return repository.ErrNotFound
	}
	record, ok := cell[rangeKey]
	if !ok {
		return repository.ErrNotFound
	}

	delete(cell, rangeKey)
	if len(cell) == 0 {
		delete(r.cells, cellKey) // Clean up empty cells.
	}

	if byEntity, ok := r.byEntity[record.EntityID]; ok {
		delete(byEntity, rangeKey)
		if len(byEntity) == 0 {
			delete(r.byEntity, record.EntityID)
		}
	}
	return nil
}

// GetByEntityID returns one of the entity's records via the secondary index.
// With multiple rows (unreconciled relocation) the lowest-sorting one is
// returned, for determinism.
func (r *LocationRepository) GetByEntityID(ctx context.Context, entityID string) (*entities.LocationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byEntity, ok := r.byEntity[entityID]
	if !ok || len(byEntity) == 0 {
		return nil, repository.ErrNotFound
	}
	keys := make([]string, 0, len(byEntity))
	for rk := range byEntity {
		keys = append(keys, rk)
	}
	sort.Strings(keys)
	return byEntity[keys[0]], nil
}

// Count returns the total number of stored rows, across all cells.
func (r *LocationRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, cell := range r.cells {
		n += len(cell)
	}
	return n
}
