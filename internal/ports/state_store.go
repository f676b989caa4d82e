package ports

import (
	"context"
	"errors"

	"cachito/internal/domain"
)

// ErrRoomNotFound is returned by StateStore.Load when no state exists for a room.
var ErrRoomNotFound = errors.New("room not found")

// ErrVersionConflict is returned by StateStore.Store when the stored version no longer
// matches the one the caller expected.
var ErrVersionConflict = errors.New("room state version conflict")

// Store version guards.
const (
	AnyVersion    = ""  // overwrite whatever is stored
	AbsentVersion = "*" // write only if nothing is stored yet
)

// StateStore persists the authoritative state of a room, secrets included.
//
// Every stored state carries an opaque version. A match owns its room by writing with
// the version it last saw; a second writer holding an older version is refused.
type StateStore interface {
	// Load returns the stored state for roomID and its version, or ErrRoomNotFound.
	Load(ctx context.Context, roomID string) (*domain.State, string, error)

	// Store replaces the stored state for roomID when the stored version matches
	// version, and returns the new version. It returns ErrVersionConflict otherwise.
	Store(ctx context.Context, roomID string, state *domain.State, version string) (string, error)
}
