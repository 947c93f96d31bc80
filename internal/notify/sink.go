// Package notify implements the alert delivery sinks. A sink accepts an
// Alert and reports success or failure; it never panics back into the
// monitor, and a failing sink never blocks delivery to the others.
package notify

import (
	"context"

	"quakewatch/internal/types"
)

// Sink is any consumer of generated alerts (console, log file, webhook,
// Kafka topic, SQS queue, websocket hub).
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Notify delivers one alert. Implementations must honor the context
	// deadline and return, not raise, all failures.
	Notify(ctx context.Context, alert *types.Alert) error
}
