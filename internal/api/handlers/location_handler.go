package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"friendfinder/internal/domain/entities"
	"friendfinder/internal/repository"
	"friendfinder/internal/services"
	"friendfinder/pkg/utils"
)

// LocationHandler translates HTTP requests into location-service calls and
// typed errors back into status codes. No geo logic lives here.
type LocationHandler struct {
	locationService *services.LocationService
}

func NewLocationHandler(locationService *services.LocationService) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
	}
}

// Lat/Lng are pointers so that 0, a valid coordinate on the equator or
// prime meridian, is distinguishable from a missing field.
type upsertLocationRequest struct {
	EntityID   string         `json:"entityId"`
	Lat        *float64       `json:"lat" binding:"required"`
	Lng        *float64       `json:"lng" binding:"required"`
	Attributes map[string]any `json:"attributes"`
}

type moveLocationRequest struct {
	OldLat *float64       `json:"oldLat" binding:"required"`
	OldLng *float64       `json:"oldLng" binding:"required"`
	Lat    *float64       `json:"lat" binding:"required"`
	Lng    *float64       `json:"lng" binding:"required"`
	Attributes map[string]any `json:"attributes"`
}

// UpsertLocation handles POST /locations. When no entityId is supplied a
// fresh one is generated, covering the signup flow where the profile and its
// first location are created together.
func (h *LocationHandler) UpsertLocation(c *gin.Context) {
	var req upsertLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entityID := req.EntityID
	created := false
	if entityID == "" {
		entityID = utils.GenerateEntityID()
		created = true
	}

	record, err := h.locationService.CreateOrUpdate(c.Request.Context(), entityID, *req.Lat, *req.Lng, req.Attributes)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, record)
}

// FindNearby handles GET /locations/nearby?lat=..&lng=..&radius=..
// with optional limit and token query parameters.
func (h *LocationHandler) FindNearby(c *gin.Context) {
	lat, ok := queryFloat(c, "lat")
	if !ok {
		return
	}
	lng, ok := queryFloat(c, "lng")
	if !ok {
		return
	}
	radius, ok := queryFloat(c, "radius")
	if !ok {
		return
	}

	var limit int32
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = int32(v)
	}

	result, err := h.locationService.FindNearby(c.Request.Context(), services.NearbyQuery{
		Lat:          lat,
		Lng:          lng,
		RadiusMeters: radius,
		Limit:        limit,
		Token:        c.Query("token"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetLocation handles GET /locations/:entityId.
func (h *LocationHandler) GetLocation(c *gin.Context) {
	record, err := h.locationService.GetByEntityID(c.Request.Context(), c.Param("entityId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// DeleteLocation handles DELETE /locations/:entityId?lat=..&lng=..
// The coordinates are required because they address the row: the cell they
// hash to is the partition the record lives in.
func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	lat, ok := queryFloat(c, "lat")
	if !ok {
		return
	}
	lng, ok := queryFloat(c, "lng")
	if !ok {
		return
	}

	err := h.locationService.Delete(c.Request.Context(), c.Param("entityId"), lat, lng)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "location deleted"})
}

// MoveLocation handles POST /locations/:entityId/move, the caller-managed
// relocation: delete at the old coordinates, insert at the new ones.
func (h *LocationHandler) MoveLocation(c *gin.Context) {
	var req moveLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.locationService.Move(c.Request.Context(), c.Param("entityId"),
		*req.OldLat, *req.OldLng, *req.Lat, *req.Lng, req.Attributes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func queryFloat(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter: " + name})
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a number"})
		return 0, false
	}
	return v, true
}

// respondError maps typed service errors onto status codes. Validation and
// not-found surface as client errors; everything else is a store-side
// failure the caller may retry later.
func respondError(c *gin.Context, err error) {
	var validation *entities.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "storage unavailable, try again later"})
	}
}
