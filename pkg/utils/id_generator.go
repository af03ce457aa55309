// Package utils provides shared utility functions used across the application.
package utils

import (
	"github.com/google/uuid"
)

// GenerateEntityID creates a new UUID v4 string for entities registered
// without a caller-supplied identifier. UUIDs need no coordination between
// writers, which matters here because every write path is a stateless
// request against a shared table.
func GenerateEntityID() string {
	return uuid.New().String()
}
