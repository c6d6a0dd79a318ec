package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewID generates a hyphenless UUIDv4 string used as the primary key for all
// records. Hyphens are stripped so the IDs survive systems that treat them as
// separators.
func NewID() string {
	return strings.ReplaceAll(uuid.Must(uuid.NewRandom()).String(), "-", "")
}
