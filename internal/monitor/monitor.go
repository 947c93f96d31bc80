// Package monitor implements the zone monitoring loop: fetch recent events
// from the catalog, drop already-seen ids, test the remainder against the
// configured alert zones, and dispatch matches to every registered sink.
//
// Key behaviors:
//   - One background goroutine per Monitor; all state mutation happens on it.
//   - A fetch failure yields an empty cycle, never a crash; the loop resumes
//     on the next tick.
//   - First-registered-matching-zone wins; at most one alert per event.
//   - An event id is marked seen whether or not it matched, so it is never
//     re-evaluated.
//   - Sink failures are isolated per sink and never abort the dispatch fan-out.
//   - State persistence failures degrade the session to in-memory-only.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"quakewatch/internal/catalog"
	"quakewatch/internal/metrics"
	"quakewatch/internal/notify"
	"quakewatch/internal/state"
	"quakewatch/internal/types"
)

// Recorder receives every fetched event batch, independent of zone
// matching. The event archive implements it; failures are logged, never
// fatal to the cycle.
type Recorder interface {
	Record(ctx context.Context, events []types.SeismicEvent) error
}

// Monitor owns a set of alert zones, a deduplication set of processed event
// ids, and the sinks that receive matches.
type Monitor struct {
	source   catalog.Source
	store    state.Store
	recorder Recorder // optional
	clock    types.Clock
	logger   *slog.Logger

	fetchFloor float64
	fetchDays  int
	fetchLimit int

	// mu guards everything below. Mutation only happens on the polling
	// goroutine; the mutex exists so Status can take a consistent snapshot
	// from request-handling goroutines.
	mu         sync.RWMutex
	zones      []types.AlertZone
	sinks      []notify.Sink
	state      *types.MonitorState
	pollCycles uint64
	running    bool
	volatile   bool // set when state persistence has failed
}

// Config holds the dependencies and fetch bounds for creating a Monitor.
type Config struct {
	Source   catalog.Source
	Store    state.Store
	Recorder Recorder // optional event archive hook
	Logger   *slog.Logger
	Clock    types.Clock

	// FetchFloor is the global minimum-magnitude floor for catalog queries.
	// It is capped to the loosest zone floor at poll time so zones below it
	// still see candidates.
	FetchFloor float64
	FetchDays  int
	FetchLimit int
}

// New creates a Monitor. Zones and sinks are registered afterwards; Run
// refuses to start until both are non-empty.
func New(cfg Config) *Monitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Monitor{
		source:     cfg.Source,
		store:      cfg.Store,
		recorder:   cfg.Recorder,
		clock:      clock,
		logger:     logger,
		fetchFloor: cfg.FetchFloor,
		fetchDays:  cfg.FetchDays,
		fetchLimit: cfg.FetchLimit,
		state:      types.NewMonitorState(),
	}
}

// AddZone appends a zone to the scan order. No uniqueness constraint is
// enforced; overlapping zones are permitted, and registration order is the
// only tie-break when they overlap.
func (m *Monitor) AddZone(zone types.AlertZone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zones = append(m.zones, zone)
}

// AddSink appends a notification sink.
func (m *Monitor) AddSink(sink notify.Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, sink)
}

// RestoreState loads persisted deduplication state from the store. A load
// failure is logged and the monitor starts with an empty, volatile state.
func (m *Monitor) RestoreState(ctx context.Context) {
	loaded, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Error("failed to load monitor state, starting empty", "error", err)
		return
	}
	m.mu.Lock()
	m.state = loaded
	m.mu.Unlock()
	m.logger.Info("monitor state restored",
		"seen_count", len(loaded.SeenIDs),
		"has_last_check", loaded.LastCheck != nil,
	)
}

// Run executes poll cycles at the given interval until ctx is cancelled.
// The first cycle runs immediately. Cancellation is cooperative: it is
// observed between cycles, while the in-cycle fetch is bounded by the
// catalog client's own timeout.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) error {
	m.mu.Lock()
	if len(m.zones) == 0 {
		m.mu.Unlock()
		return types.NewAppError(types.ErrCodeConfigNoZones, "refusing to start: no alert zones registered", nil)
	}
	if len(m.sinks) == 0 {
		m.mu.Unlock()
		return types.NewAppError(types.ErrCodeConfigNoSinks, "refusing to start: no notification sinks registered", nil)
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	m.logger.Info("monitor started",
		"interval", interval.String(),
		"zones", len(m.zones),
		"sinks", len(m.sinks),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := m.Poll(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs one fetch-filter-match-dispatch pass and returns the number of
// alerts dispatched. The only error it returns is context cancellation;
// every operational failure is absorbed per the cycle's failure semantics.
func (m *Monitor) Poll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	events := m.fetch(ctx)

	if m.recorder != nil && len(events) > 0 {
		if err := m.recorder.Record(ctx, events); err != nil {
			m.logger.Error("failed to record events to archive", "error", err)
		}
	}

	m.mu.Lock()
	alerts := m.match(events)
	m.mu.Unlock()

	m.dispatch(ctx, alerts)

	now := m.clock.Now()
	m.mu.Lock()
	m.state.LastCheck = &now
	m.pollCycles++
	snapshot := m.state.Clone()
	m.mu.Unlock()

	if err := m.store.Save(ctx, snapshot); err != nil {
		metrics.StateSaveFailuresTotal.Inc()
		m.mu.Lock()
		m.volatile = true
		m.mu.Unlock()
		m.logger.Error("failed to persist monitor state, continuing in-memory", "error", err)
	}

	metrics.PollCyclesTotal.Inc()
	m.logger.Info("poll cycle complete",
		"events", len(events),
		"alerts", len(alerts),
	)
	return len(alerts), nil
}

// fetch queries the catalog. Any failure is logged and yields an empty
// result set for this cycle.
func (m *Monitor) fetch(ctx context.Context) []types.SeismicEvent {
	m.mu.RLock()
	floor := m.fetchFloor
	for _, z := range m.zones {
		if z.MinMagnitude < floor {
			floor = z.MinMagnitude
		}
	}
	m.mu.RUnlock()

	events, err := m.source.Query(ctx, catalog.QueryParams{
		MinMagnitude: floor,
		Days:         m.fetchDays,
		Limit:        m.fetchLimit,
	})
	if err != nil {
		metrics.FetchFailuresTotal.Inc()
		m.logger.Warn("catalog fetch failed, treating as empty cycle", "error", err)
		return nil
	}
	metrics.EventsFetchedTotal.Add(float64(len(events)))
	return events
}

// match filters seen events, scans zones in registration order, and builds
// at most one alert per event. Every event id is marked seen regardless of
// outcome. Caller holds m.mu.
func (m *Monitor) match(events []types.SeismicEvent) []*types.Alert {
	var alerts []*types.Alert
	for _, ev := range events {
		if m.state.Seen(ev.ID) {
			continue
		}
		for _, zone := range m.zones {
			if zone.Contains(ev.Latitude, ev.Longitude, ev.Magnitude) {
				alerts = append(alerts, &types.Alert{
					ID:        uuid.New().String(),
					ZoneName:  zone.Name,
					Event:     ev,
					Severity:  types.SeverityForMagnitude(ev.Magnitude),
					AlertTime: m.clock.Now(),
				})
				break
			}
		}
		m.state.MarkSeen(ev.ID)
	}
	return alerts
}

// dispatch delivers every alert to every sink. A sink failure is logged and
// counted, and never prevents delivery to the remaining sinks.
func (m *Monitor) dispatch(ctx context.Context, alerts []*types.Alert) {
	m.mu.RLock()
	sinks := make([]notify.Sink, len(m.sinks))
	copy(sinks, m.sinks)
	m.mu.RUnlock()

	for _, alert := range alerts {
		metrics.AlertsTotal.WithLabelValues(alert.ZoneName).Inc()
		m.logger.Info("alert raised",
			"alert_id", alert.ID,
			"zone", alert.ZoneName,
			"event_id", alert.Event.ID,
			"magnitude", alert.Event.Magnitude,
			"place", alert.Event.Place,
		)
		for _, sink := range sinks {
			if err := sink.Notify(ctx, alert); err != nil {
				metrics.SinkFailuresTotal.WithLabelValues(sink.Name()).Inc()
				m.logger.Error("sink delivery failed",
					"sink", sink.Name(),
					"alert_id", alert.ID,
					"error", err,
				)
			}
		}
	}
}

// Status returns a point-in-time snapshot copy of monitor status, safe to
// read from other goroutines.
func (m *Monitor) Status() types.MonitorSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := types.MonitorSnapshot{
		Zones:      make([]types.AlertZone, len(m.zones)),
		Sinks:      make([]string, 0, len(m.sinks)),
		SeenCount:  len(m.state.SeenIDs),
		PollCycles: m.pollCycles,
		Running:    m.running,
	}
	copy(snap.Zones, m.zones)
	for _, s := range m.sinks {
		snap.Sinks = append(snap.Sinks, s.Name())
	}
	if m.state.LastCheck != nil {
		t := *m.state.LastCheck
		snap.LastCheck = &t
	}
	return snap
}
