// Package engine implements the progress reconciliation pipeline: it
// merges a user's flat active-course cursor with their enrolled
// journeys, applies streak rollovers and progress deltas, and keeps
// unlocked titles current.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trellislearn/trellis-server/internal/calendar"
	"github.com/trellislearn/trellis-server/internal/domain"
	"github.com/trellislearn/trellis-server/internal/shared"
	"github.com/trellislearn/trellis-server/internal/store"
	"github.com/trellislearn/trellis-server/internal/titles"
)

// Publisher receives successfully reconciled snapshots for push
// delivery to connected clients.
type Publisher interface {
	SnapshotUpdated(userID string, snap *domain.Snapshot, newTitles []string)
}

// Engine runs reconciliations against the snapshot store. Reconciliations
// for the same user are serialized through a per-user mutex so two
// concurrent requests from the same user cannot interleave their
// read-modify-write cycles within this process.
type Engine struct {
	repo      store.Repository
	clock     calendar.Clock
	mapper    *titles.Mapper
	publisher Publisher
	userLocks sync.Map
}

// New creates an Engine.
func New(repo store.Repository, clock calendar.Clock, mapper *titles.Mapper) *Engine {
	return &Engine{
		repo:   repo,
		clock:  clock,
		mapper: mapper,
	}
}

// SetPublisher sets the sink for post-reconciliation snapshot events.
func (e *Engine) SetPublisher(p Publisher) {
	e.publisher = p
}

// FetchAndReconcile settles a user's snapshot without applying a delta:
// daily rollover, title canonicalization, journey normalization, cursor
// sync, title recompute and activity backfill. Used on session load to
// repair drift before display.
func (e *Engine) FetchAndReconcile(ctx context.Context, userID string) (*domain.Snapshot, error) {
	return e.run(ctx, userID, nil)
}

// ApplyDelta runs the full pipeline including the client's progress
// delta. The delta is validated before any state is read or written.
func (e *Engine) ApplyDelta(ctx context.Context, userID string, delta domain.Delta) (*domain.Snapshot, error) {
	if err := delta.Validate(); err != nil {
		return nil, err
	}
	return e.run(ctx, userID, &delta)
}

// UpdateProfile rewrites the profile fields of a user's snapshot. Nil
// fields are left unchanged; a legacy selectedTitle value is
// canonicalized before it is stored. The write holds the same per-user
// lock as reconciliation, so it can never clobber a progress update
// that commits concurrently.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, username, selectedTitle *string) (*domain.Snapshot, error) {
	mu := e.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	snap, err := e.repo.GetSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot for %s: %w", userID, err)
	}

	if username != nil && *username != "" {
		snap.Username = *username
	}
	if selectedTitle != nil {
		snap.SelectedTitle = e.mapper.Canonicalize(*selectedTitle)
	}

	snap.UpdatedAt = e.clock.Now()
	if err := e.saveWithRetry(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot for %s: %w", userID, err)
	}

	if e.publisher != nil {
		e.publisher.SnapshotUpdated(userID, snap, nil)
	}

	return snap, nil
}

func (e *Engine) lockUser(userID string) *sync.Mutex {
	lock, _ := e.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (e *Engine) run(ctx context.Context, userID string, delta *domain.Delta) (*domain.Snapshot, error) {
	mu := e.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	snap, err := e.repo.GetSnapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot for %s: %w", userID, err)
	}

	now := e.clock.Now()
	newTitles := e.reconcile(snap, now, delta)

	snap.UpdatedAt = now
	if err := e.saveWithRetry(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot for %s: %w", userID, err)
	}

	if e.publisher != nil {
		e.publisher.SnapshotUpdated(userID, snap, newTitles)
	}

	return snap, nil
}

// saveWithRetry attempts the snapshot write with exponential backoff to
// ride out SQLITE_BUSY errors from concurrent writers.
func (e *Engine) saveWithRetry(ctx context.Context, snap *domain.Snapshot) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = e.repo.SaveSnapshot(ctx, snap)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("Snapshot save hit SQLITE_BUSY, retrying",
				"user_id", snap.UserID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}
		break
	}
	return err
}
