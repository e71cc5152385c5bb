// Package checkpoint provides persistent session state storage.
//
// Each session keeps a single latest snapshot, overwritten after every
// completed step, so a crashed or restarted process can pick up the
// conversation where it left off.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists session checkpoints.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores the latest checkpoint for a session.
	// Overwrites any previous checkpoint for the same session.
	Save(sessionID string, data []byte) error

	// Load retrieves the latest checkpoint for a session.
	// Returns ErrNotFound if the session has no checkpoint.
	Load(sessionID string) ([]byte, error)

	// List returns metadata for all stored sessions, most recent first.
	// Returns an empty slice (not an error) when the store is empty.
	List() ([]Info, error)

	// Delete removes a session's checkpoint.
	// Returns nil if the session doesn't exist.
	Delete(sessionID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides session metadata without loading full state.
type Info struct {
	SessionID string
	Sequence  int
	UpdatedAt time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a session checkpoint doesn't exist.
	ErrNotFound = errors.New("session checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
