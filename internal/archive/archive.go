// Package archive moves aged-out events from the Postgres archive to
// gzip-compressed JSON-lines files, keeping the hot table bounded.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"quakewatch/internal/types"
)

// EventStore abstracts the repository operations the archiver needs.
type EventStore interface {
	ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]types.SeismicEvent, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// Archiver periodically drains events older than the retention window into
// cold storage files.
type Archiver struct {
	store     EventStore
	outputDir string
	retention time.Duration
	batchSize int
	clock     types.Clock
	logger    *slog.Logger
}

// Config holds the configuration for creating an Archiver.
type Config struct {
	Store     EventStore
	OutputDir string
	Retention time.Duration
	BatchSize int
	Logger    *slog.Logger
	Clock     types.Clock
}

// New creates an Archiver.
func New(cfg Config) *Archiver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 500
	}
	return &Archiver{
		store:     cfg.Store,
		outputDir: cfg.OutputDir,
		retention: cfg.Retention,
		batchSize: batch,
		clock:     clock,
		logger:    logger,
	}
}

// Run executes RunOnce at the given interval until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := a.RunOnce(ctx); err != nil {
				a.logger.Error("archive cycle failed", "error", err)
			}
		}
	}
}

// RunOnce drains one batch of events past retention into a gzip JSONL file
// and deletes the archived rows. Returns the number of events archived.
// Rows are only deleted after the file is fully flushed and closed, so a
// crash mid-archive duplicates rather than loses events.
func (a *Archiver) RunOnce(ctx context.Context) (int, error) {
	cutoff := a.clock.Now().Add(-a.retention)
	events, err := a.store.ListOlderThan(ctx, cutoff, a.batchSize)
	if err != nil {
		return 0, fmt.Errorf("listing events past retention: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(a.outputDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating archive directory: %w", err)
	}

	name := fmt.Sprintf("events-%s.jsonl.gz", a.clock.Now().Format("20060102-150405"))
	path := filepath.Join(a.outputDir, name)
	if err := writeArchive(path, events); err != nil {
		return 0, err
	}

	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	deleted, err := a.store.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("deleting archived events: %w", err)
	}

	a.logger.Info("archived events to cold storage",
		"file", path,
		"archived", len(events),
		"deleted", deleted,
		"cutoff", cutoff.Format(time.RFC3339),
	)
	return len(events), nil
}

// writeArchive writes events as gzip-compressed JSON lines.
func writeArchive(path string, events []types.SeismicEvent) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			gz.Close()
			f.Close()
			os.Remove(path)
			return fmt.Errorf("encoding event %s: %w", ev.ID, err)
		}
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("flushing archive: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing archive file: %w", err)
	}
	return nil
}
