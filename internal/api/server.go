// Package api provides the HTTP chassis for QuakeWatch: a chi router with
// request-ID, logging, and recovery middleware, a JSON response envelope,
// and the read-only dashboard endpoints.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quakewatch/internal/metrics"
	"quakewatch/internal/types"
)

// StatusSource exposes a snapshot of the monitor for the status endpoint.
type StatusSource interface {
	Status() types.MonitorSnapshot
}

// Pinger verifies a dependency is reachable, for the health endpoint.
type Pinger interface {
	Name() string
	Ping(r *http.Request) error
}

// Server encapsulates the API dependencies, allowing injection during tests.
type Server struct {
	logger  *slog.Logger
	events  EventSource
	monitor StatusSource
	zones   []types.AlertZone
	live    http.Handler // websocket hub; nil disables /ws
	pingers []Pinger

	router *chi.Mux
}

// ServerConfig holds the dependencies for creating a Server.
type ServerConfig struct {
	Logger  *slog.Logger
	Events  EventSource
	Monitor StatusSource
	Zones   []types.AlertZone
	Live    http.Handler
	Pingers []Pinger
}

// NewServer initializes the router and mounts all routes. It fails fast on
// missing critical dependencies.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if cfg.Events == nil {
		return nil, fmt.Errorf("event source must not be nil")
	}
	if cfg.Monitor == nil {
		return nil, fmt.Errorf("monitor must not be nil")
	}

	s := &Server{
		logger:  cfg.Logger,
		events:  cfg.Events,
		monitor: cfg.Monitor,
		zones:   cfg.Zones,
		live:    cfg.Live,
		pingers: cfg.Pingers,
		router:  chi.NewRouter(),
	}
	s.mountRoutes()
	return s, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) mountRoutes() {
	r := s.router
	r.Use(s.Recoverer)
	r.Use(RequestID)
	r.Use(s.RequestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/earthquakes", s.handleListEvents)
		r.Get("/earthquakes/export", s.handleExportEvents)
		r.Get("/zones", s.handleListZones)
		r.Get("/stats", s.handleStats)
		r.Get("/status", s.handleStatus)
	})

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	if s.live != nil {
		r.Method(http.MethodGet, "/ws", s.live)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundRoute, "route not found", nil))
	})
}
