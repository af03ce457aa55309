// Package services implements the library surface consumed by the HTTP
// handlers: location writes, lookups, and the radius query engine.
package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"friendfinder/internal/config"
	"friendfinder/internal/domain/entities"
	"friendfinder/internal/repository"
)

// LocationService owns the lifecycle of location records: one record per
// entity in the common case, keyed by cell and geohash. It also hosts the
// radius engine (radius.go).
type LocationService struct {
	repo   repository.LocationRepository
	geo    config.GeoConfig
	search config.SearchConfig
	logger *zap.Logger
}

func NewLocationService(repo repository.LocationRepository, cfg *config.Config, logger *zap.Logger) *LocationService {
	return &LocationService{
		repo:   repo,
		geo:    cfg.Geo,
		search: cfg.Search,
		logger: logger,
	}
}

// CreateOrUpdate validates the coordinates, derives the keys, and upserts the
// record. Calling it again with identical coordinates overwrites the same row.
// Calling it with different coordinates writes a row in a different cell and
// leaves the old row in place: relocation is caller-managed (see Move), the
// store never reconciles stale rows on its own.
func (s *LocationService) CreateOrUpdate(ctx context.Context, entityID string, lat, lng float64, attrs map[string]any) (*entities.LocationRecord, error) {
	record, err := entities.NewLocationRecord(entityID, lat, lng, attrs, s.geo.RecordPrecision, s.geo.HashKeyLength)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("put location for %s: %w", entityID, err)
	}

	s.logger.Debug("location stored",
		zap.String("entityId", entityID),
		zap.String("cellKey", record.CellKey),
		zap.String("geohash", record.Geohash))
	return record, nil
}

// Delete removes the record at the given coordinates. The coordinates address
// the row: they must be the ones last written for the entity, because the
// cell they hash to is the partition the row lives in. A stale position
// yields repository.ErrNotFound, which callers may treat as success for
// idempotent deletes.
func (s *LocationService) Delete(ctx context.Context, entityID string, lat, lng float64) error {
	record, err := entities.NewLocationRecord(entityID, lat, lng, nil, s.geo.RecordPrecision, s.geo.HashKeyLength)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, record.CellKey, record.RangeKey); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete location for %s: %w", entityID, err)
	}
	return nil
}

// Move relocates an entity: delete at the old coordinates, then put at the
// new ones. The two steps are not atomic: a crash in between leaves zero
// rows, and a failed delete after a successful put elsewhere leaves two.
// A missing old row is tolerated so Move can be safely re-run.
func (s *LocationService) Move(ctx context.Context, entityID string, oldLat, oldLng, newLat, newLng float64, attrs map[string]any) (*entities.LocationRecord, error) {
	// Validate the destination before touching anything: a bad target must
	// not delete the source.
	if err := entities.ValidateCoordinates(newLat, newLng); err != nil {
		return nil, err
	}

	if err := s.Delete(ctx, entityID, oldLat, oldLng); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return s.CreateOrUpdate(ctx, entityID, newLat, newLng, attrs)
}

// GetByEntityID looks a record up directly through the store's entity index.
func (s *LocationService) GetByEntityID(ctx context.Context, entityID string) (*entities.LocationRecord, error) {
	if entityID == "" {
		return nil, &entities.ValidationError{Field: "entityId", Message: "must not be empty"}
	}
	record, err := s.repo.GetByEntityID(ctx, entityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get location for %s: %w", entityID, err)
	}
	return record, nil
}
