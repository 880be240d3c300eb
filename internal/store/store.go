// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/trellislearn/trellis-server/internal/domain"
)

// ErrNotFound is returned when no snapshot exists for a user ID.
var ErrNotFound = errors.New("snapshot not found")

// LeaderboardEntry is one row of the XP leaderboard.
type LeaderboardEntry struct {
	UserID        string `json:"userId"`
	Username      string `json:"username"`
	XP            int    `json:"xp"`
	SelectedTitle string `json:"selectedTitle,omitempty"`
}

// Repository defines the interface for persisting user progress snapshots.
//
// GetSnapshot followed by SaveSnapshot is the engine's read-modify-write
// cycle. SaveSnapshot always writes the whole document, so concurrent
// writers for the same user resolve last-write-wins at document
// granularity; the engine serializes per-user to avoid losing updates
// within one process.
type Repository interface {
	// GetSnapshot retrieves the progress snapshot for a user.
	// Returns ErrNotFound if the user has no snapshot.
	GetSnapshot(ctx context.Context, userID string) (*domain.Snapshot, error)

	// SaveSnapshot creates or replaces a user's snapshot as one
	// atomic document write.
	SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error

	// Leaderboard returns the top users ordered by XP descending.
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)

	// CountUsers returns the total number of stored snapshots.
	CountUsers(ctx context.Context) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
