package api

import (
	"context"
	"time"

	"quakewatch/internal/catalog"
	"quakewatch/internal/db"
	"quakewatch/internal/types"
)

// EventSource serves recent events and aggregate stats to the API. Two
// implementations exist: the Postgres archive (when configured) and a
// passthrough to the live catalog.
type EventSource interface {
	Recent(ctx context.Context, minMagnitude float64, days int, limit int) ([]types.SeismicEvent, error)
	Stats(ctx context.Context) (*types.EventStats, error)
}

// ArchiveEvents serves the API from the Postgres event archive.
type ArchiveEvents struct {
	repo  *db.EventRepository
	clock types.Clock
}

// NewArchiveEvents creates an archive-backed EventSource.
func NewArchiveEvents(repo *db.EventRepository) *ArchiveEvents {
	return &ArchiveEvents{repo: repo, clock: types.RealClock{}}
}

// Recent implements EventSource.
func (a *ArchiveEvents) Recent(ctx context.Context, minMagnitude float64, days int, limit int) ([]types.SeismicEvent, error) {
	return a.repo.List(ctx, db.ListEventsParams{
		MinMagnitude: minMagnitude,
		Since:        a.clock.Now().AddDate(0, 0, -days),
		Limit:        limit,
	})
}

// Stats implements EventSource.
func (a *ArchiveEvents) Stats(ctx context.Context) (*types.EventStats, error) {
	return a.repo.Stats(ctx, a.clock.Now())
}

// CatalogEvents serves the API straight from the upstream catalog when no
// archive database is configured. Stats are computed in memory over the
// default window.
type CatalogEvents struct {
	source catalog.Source
	limit  int
}

// NewCatalogEvents creates a catalog-backed EventSource.
func NewCatalogEvents(source catalog.Source, limit int) *CatalogEvents {
	if limit <= 0 {
		limit = 200
	}
	return &CatalogEvents{source: source, limit: limit}
}

// Recent implements EventSource.
func (c *CatalogEvents) Recent(ctx context.Context, minMagnitude float64, days int, limit int) ([]types.SeismicEvent, error) {
	return c.source.Query(ctx, catalog.QueryParams{
		MinMagnitude: minMagnitude,
		Days:         days,
		Limit:        limit,
	})
}

// Stats implements EventSource.
func (c *CatalogEvents) Stats(ctx context.Context) (*types.EventStats, error) {
	events, err := c.source.Query(ctx, catalog.QueryParams{
		MinMagnitude: 0,
		Days:         1,
		Limit:        c.limit,
	})
	if err != nil {
		return nil, err
	}
	return ComputeStats(events, time.Now().UTC()), nil
}

// ComputeStats aggregates events into EventStats in memory.
func ComputeStats(events []types.SeismicEvent, now time.Time) *types.EventStats {
	stats := &types.EventStats{MagnitudeDistribution: make(map[string]int)}
	cutoff := now.Add(-24 * time.Hour)

	var sum float64
	for _, ev := range events {
		stats.Total++
		sum += ev.Magnitude
		if ev.Magnitude > stats.MaxMagnitude {
			stats.MaxMagnitude = ev.Magnitude
		}
		if ev.Time.After(cutoff) {
			stats.Recent24h++
		}
		stats.MagnitudeDistribution[types.MagnitudeBucket(ev.Magnitude)]++
	}
	if stats.Total > 0 {
		stats.AverageMagnitude = sum / float64(stats.Total)
	}
	return stats
}
