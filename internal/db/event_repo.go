package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"quakewatch/internal/types"
)

// ListEventsParams defines the filtering parameters for listing events.
type ListEventsParams struct {
	MinMagnitude float64
	Since        time.Time // zero means no lower bound
	Limit        int
}

// EventRepository provides data access for the events table.
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates an EventRepository backed by the given
// connection (pool or transaction).
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// eventColumns is the standard column set for event queries.
const eventColumns = `id, magnitude, place, occurred_at, latitude, longitude,
	depth_km, url, tsunami, felt, significance`

// scanEvent scans a single event row. Column order must match eventColumns.
func scanEvent(row pgx.Row) (types.SeismicEvent, error) {
	var ev types.SeismicEvent
	err := row.Scan(
		&ev.ID,
		&ev.Magnitude,
		&ev.Place,
		&ev.Time,
		&ev.Latitude,
		&ev.Longitude,
		&ev.DepthKm,
		&ev.URL,
		&ev.Tsunami,
		&ev.Felt,
		&ev.Significance,
	)
	return ev, err
}

// Upsert inserts or refreshes a batch of events. The catalog re-reports the
// same events on every poll, so conflicts on id are expected and update the
// mutable fields (magnitude and significance get revised upstream).
func (r *EventRepository) Upsert(ctx context.Context, events []types.SeismicEvent) error {
	for _, ev := range events {
		_, err := r.db.Exec(ctx,
			`INSERT INTO events (`+eventColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (id) DO UPDATE SET
				magnitude = EXCLUDED.magnitude,
				place = EXCLUDED.place,
				tsunami = EXCLUDED.tsunami,
				felt = EXCLUDED.felt,
				significance = EXCLUDED.significance`,
			ev.ID, ev.Magnitude, ev.Place, ev.Time, ev.Latitude, ev.Longitude,
			ev.DepthKm, ev.URL, ev.Tsunami, ev.Felt, ev.Significance,
		)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalDB,
				fmt.Sprintf("upserting event %s", ev.ID), err)
		}
	}
	return nil
}

// Record implements the monitor's Recorder hook.
func (r *EventRepository) Record(ctx context.Context, events []types.SeismicEvent) error {
	return r.Upsert(ctx, events)
}

// List returns events matching the filters, most recent first.
func (r *EventRepository) List(ctx context.Context, params ListEventsParams) ([]types.SeismicEvent, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE magnitude >= $1 AND occurred_at >= $2
		 ORDER BY occurred_at DESC
		 LIMIT $3`,
		params.MinMagnitude, params.Since, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing events", err)
	}
	defer rows.Close()

	var events []types.SeismicEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning event row", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating event rows", err)
	}
	return events, nil
}

// Stats aggregates recent catalog activity in SQL.
func (r *EventRepository) Stats(ctx context.Context, now time.Time) (*types.EventStats, error) {
	stats := &types.EventStats{MagnitudeDistribution: make(map[string]int)}

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE occurred_at >= $1),
			COALESCE(AVG(magnitude), 0),
			COALESCE(MAX(magnitude), 0)
		 FROM events`,
		now.Add(-24*time.Hour),
	).Scan(&stats.Total, &stats.Recent24h, &stats.AverageMagnitude, &stats.MaxMagnitude)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "aggregating event stats", err)
	}

	rows, err := r.db.Query(ctx, `SELECT magnitude FROM events`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "reading magnitudes", err)
	}
	defer rows.Close()
	for rows.Next() {
		var mag float64
		if err := rows.Scan(&mag); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning magnitude", err)
		}
		stats.MagnitudeDistribution[types.MagnitudeBucket(mag)]++
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating magnitudes", err)
	}
	return stats, nil
}

// ListOlderThan returns up to limit events that occurred before the cutoff,
// oldest first. Used by the archiver.
func (r *EventRepository) ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]types.SeismicEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE occurred_at < $1
		 ORDER BY occurred_at ASC
		 LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing old events", err)
	}
	defer rows.Close()

	var events []types.SeismicEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning event row", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating event rows", err)
	}
	return events, nil
}

// DeleteByIDs removes the given events. Used by the archiver after a batch
// has been written to cold storage.
func (r *EventRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "deleting archived events", err)
	}
	return tag.RowsAffected(), nil
}
