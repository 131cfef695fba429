// Package storage persists relay audio so it can be served back to clients.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for file names that would escape the store
var ErrInvalidName = errors.New("invalid audio file name")

// Store persists synthesized audio under a file name and returns the
// location clients fetch it from
type Store interface {
	// Save writes data under name and returns a servable path or URL
	Save(ctx context.Context, name string, data []byte) (string, error)

	// Ping reports whether the store accepts writes
	Ping(ctx context.Context) (bool, error)
}

// NewFileName returns a fresh, collision-free audio file name
func NewFileName() string {
	return fmt.Sprintf("audio_%s.mp3", uuid.New().String())
}
