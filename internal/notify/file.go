package notify

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"quakewatch/internal/types"
)

// FileSink appends one line per alert to a log file. The file is opened per
// write so log rotation does not strand a stale handle.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink creates a FileSink appending to the given path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Name implements Sink.
func (f *FileSink) Name() string { return "file" }

// Notify implements Sink.
func (f *FileSink) Notify(_ context.Context, alert *types.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening alert log: %w", err)
	}
	defer fh.Close()

	line := fmt.Sprintf("%s\t%s\tzone=%s\tM%.1f\t%s\tlat=%.4f\tlon=%.4f\ttsunami=%t\n",
		alert.AlertTime.UTC().Format(time.RFC3339),
		alert.Severity,
		alert.ZoneName,
		alert.Event.Magnitude,
		alert.Event.Place,
		alert.Event.Latitude,
		alert.Event.Longitude,
		alert.Event.Tsunami,
	)
	if _, err := fh.WriteString(line); err != nil {
		return fmt.Errorf("appending alert log: %w", err)
	}
	return nil
}
