// Package state persists monitor deduplication state across restarts so a
// restart does not re-alert on already-seen events. Two backends are
// provided: a JSON file with atomic replace semantics, and Redis.
package state

import (
	"context"

	"quakewatch/internal/types"
)

// Store loads and saves MonitorState. Load on a backend with no prior state
// returns an empty state, not an error. Save failures are reported to the
// caller, which degrades to in-memory-only operation.
type Store interface {
	Load(ctx context.Context) (*types.MonitorState, error)
	Save(ctx context.Context, s *types.MonitorState) error
}
