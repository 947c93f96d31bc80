package notify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"quakewatch/internal/types"
)

// ConsoleSink prints a banner for each alert. Intended for interactive runs
// and demos.
type ConsoleSink struct {
	out io.Writer
}

// NewConsoleSink creates a ConsoleSink writing to the given writer
// (typically os.Stdout).
func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

// Name implements Sink.
func (c *ConsoleSink) Name() string { return "console" }

// Notify implements Sink.
func (c *ConsoleSink) Notify(_ context.Context, alert *types.Alert) error {
	line := strings.Repeat("=", 60)
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", line)
	fmt.Fprintf(&b, "EARTHQUAKE ALERT [%s] zone=%s\n", strings.ToUpper(alert.Severity.String()), alert.ZoneName)
	fmt.Fprintf(&b, "M%.1f  %s\n", alert.Event.Magnitude, alert.Event.Place)
	fmt.Fprintf(&b, "time=%s  depth=%.1fkm  lat=%.4f  lon=%.4f\n",
		alert.Event.Time.Format("2006-01-02 15:04:05 MST"),
		alert.Event.DepthKm, alert.Event.Latitude, alert.Event.Longitude)
	if alert.Event.Tsunami {
		b.WriteString("TSUNAMI WARNING ISSUED\n")
	}
	fmt.Fprintf(&b, "%s\n", line)

	_, err := io.WriteString(c.out, b.String())
	return err
}
