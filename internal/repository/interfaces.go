// Package repository defines the storage contract for location records and
// the error values every backend shares.
package repository

import (
	"context"
	"errors"
	"fmt"

	"friendfinder/internal/domain/entities"
)

// ErrNotFound reports that a delete or direct-lookup target does not exist.
// Callers treat it as a normal, expected outcome (idempotent delete), not
// necessarily a failure. Test with errors.Is.
var ErrNotFound = errors.New("location record not found")

// StoreError wraps a backing-store failure (unavailable, throttled). Reads
// hitting a retryable StoreError are retried with bounded backoff inside the
// store; writes are never auto-retried, to avoid duplicate rows during a
// relocation.
type StoreError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// CellPage is one page of a cell range query, with the sort key to resume
// from when the backend truncated the page.
type CellPage struct {
	Records []*entities.LocationRecord
	// NextRangeKey is the sort key of the last record of a truncated page,
	// empty when the cell is exhausted.
	NextRangeKey string
}

// LocationRepository is the narrow multi-record-read plus single-record-write
// surface over the backing key-value table.
//
// Put is a plain upsert of the row at (record.CellKey, record.RangeKey); it
// never touches rows the same entity may have left in other cells.
// QueryCell is the only multi-record read primitive: a range query within one
// partition, restricted to sort keys beginning with geohashPrefix.
type LocationRepository interface {
	Put(ctx context.Context, record *entities.LocationRecord) error

	// QueryCell reads records in cellKey whose sort key starts with
	// geohashPrefix, resuming after startRangeKey when non-empty, returning
	// at most limit records when limit > 0.
	QueryCell(ctx context.Context, cellKey, geohashPrefix, startRangeKey string, limit int32) (*CellPage, error)

	// Delete removes the row at (cellKey, rangeKey), returning ErrNotFound
	// if no such row exists.
	Delete(ctx context.Context, cellKey, rangeKey string) error

	// GetByEntityID looks a record up through the entity-ID secondary index,
	// returning ErrNotFound when the entity has no stored location. If an
	// unreconciled relocation left multiple rows, which one is returned is
	// unspecified.
	GetByEntityID(ctx context.Context, entityID string) (*entities.LocationRecord, error)
}
