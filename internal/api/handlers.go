package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"quakewatch/internal/types"
)

// Query bounds for the list endpoints.
const (
	defaultMinMagnitude = 4.0
	defaultDays         = 1
	defaultLimit        = 100
	maxDays             = 30
	maxLimit            = 1000
)

type listQuery struct {
	MinMagnitude float64
	Days         int
	Limit        int
}

// parseListQuery validates min_magnitude, days, and limit query parameters.
func parseListQuery(r *http.Request) (listQuery, error) {
	q := listQuery{
		MinMagnitude: defaultMinMagnitude,
		Days:         defaultDays,
		Limit:        defaultLimit,
	}

	if raw := r.URL.Query().Get("min_magnitude"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 10 {
			return q, types.NewAppError(types.ErrCodeValidationInvalidParam,
				"min_magnitude must be a number between 0 and 10", err)
		}
		q.MinMagnitude = v
	}
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxDays {
			return q, types.NewAppError(types.ErrCodeValidationInvalidParam,
				fmt.Sprintf("days must be an integer between 1 and %d", maxDays), err)
		}
		q.Days = v
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxLimit {
			return q, types.NewAppError(types.ErrCodeValidationInvalidParam,
				fmt.Sprintf("limit must be an integer between 1 and %d", maxLimit), err)
		}
		q.Limit = v
	}
	return q, nil
}

// handleListEvents returns recent events filtered by the query parameters.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		Error(w, r, err)
		return
	}

	events, err := s.events.Recent(r.Context(), q.MinMagnitude, q.Days, q.Limit)
	if err != nil {
		Error(w, r, err)
		return
	}
	if events == nil {
		events = []types.SeismicEvent{}
	}

	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]any{
		"count":  len(events),
		"events": events,
	}})
}

// handleExportEvents streams the filtered events as CSV.
func (s *Server) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		Error(w, r, err)
		return
	}

	events, err := s.events.Recent(r.Context(), q.MinMagnitude, q.Days, q.Limit)
	if err != nil {
		Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="earthquakes.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "magnitude", "place", "time", "latitude", "longitude", "depth_km", "tsunami", "significance"})
	for _, ev := range events {
		_ = cw.Write([]string{
			ev.ID,
			strconv.FormatFloat(ev.Magnitude, 'f', 1, 64),
			ev.Place,
			ev.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(ev.Latitude, 'f', 4, 64),
			strconv.FormatFloat(ev.Longitude, 'f', 4, 64),
			strconv.FormatFloat(ev.DepthKm, 'f', 1, 64),
			strconv.FormatBool(ev.Tsunami),
			strconv.Itoa(ev.Significance),
		})
	}
	cw.Flush()
}

// handleListZones returns the configured alert zones.
func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	zones := s.zones
	if zones == nil {
		zones = []types.AlertZone{}
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]any{
		"count": len(zones),
		"zones": zones,
	}})
}

// handleStats returns aggregate catalog statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.events.Stats(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: stats})
}

// handleStatus returns a snapshot of the monitor.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, APIResponse{Data: s.monitor.Status()})
}

// handleHealth reports liveness and pings registered dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.pingers))
	healthy := true
	for _, p := range s.pingers {
		if err := p.Ping(r); err != nil {
			checks[p.Name()] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks[p.Name()] = "ok"
		}
	}

	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	JSON(w, r, status, APIResponse{Data: map[string]any{
		"status": state,
		"checks": checks,
	}})
}
