// Package metrics exposes Prometheus collectors for the monitor loop, the
// catalog adapter, and the HTTP layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PollCyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quakewatch_poll_cycles_total",
		Help: "Total number of completed poll cycles",
	})
	FetchFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quakewatch_fetch_failures_total",
		Help: "Total catalog fetch failures (treated as empty cycles)",
	})
	EventsFetchedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quakewatch_events_fetched_total",
		Help: "Total events returned by the catalog",
	})
	AlertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quakewatch_alerts_total",
		Help: "Total alerts raised, labeled by zone",
	}, []string{"zone"})
	SinkFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quakewatch_sink_failures_total",
		Help: "Total sink delivery failures, labeled by sink",
	}, []string{"sink"})
	StateSaveFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quakewatch_state_save_failures_total",
		Help: "Total monitor state persistence failures",
	})
	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quakewatch_websocket_clients",
		Help: "Currently connected websocket clients",
	})
	HTTPRequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quakewatch_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(
		PollCyclesTotal,
		FetchFailuresTotal,
		EventsFetchedTotal,
		AlertsTotal,
		SinkFailuresTotal,
		StateSaveFailuresTotal,
		WebsocketClients,
		HTTPRequestDurationMs,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
