package types

import (
	"math"
	"time"
)

// KmPerDegree is the flat-earth conversion factor between degrees of
// latitude/longitude and kilometers. Zone matching deliberately uses a
// planar approximation rather than true geodesic distance; the error grows
// with latitude and zone size, and that behavior is preserved on purpose.
const KmPerDegree = 111.0

// SeismicEvent is a normalized earthquake record from the upstream catalog.
// Created by the catalog adapter; read-only downstream.
type SeismicEvent struct {
	ID           string    `json:"id" db:"id"`
	Magnitude    float64   `json:"magnitude" db:"magnitude"`
	Place        string    `json:"place" db:"place"`
	Time         time.Time `json:"time" db:"occurred_at"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Longitude    float64   `json:"longitude" db:"longitude"`
	DepthKm      float64   `json:"depth_km" db:"depth_km"`
	URL          string    `json:"url,omitempty" db:"url"`
	Tsunami      bool      `json:"tsunami" db:"tsunami"`
	Felt         int       `json:"felt,omitempty" db:"felt"`
	Significance int       `json:"significance" db:"significance"`
}

// AlertZone is a named circular geographic region with a magnitude floor.
// Immutable after creation.
type AlertZone struct {
	Name         string  `json:"name" validate:"required,max=100"`
	CenterLat    float64 `json:"center_lat" validate:"min=-90,max=90"`
	CenterLon    float64 `json:"center_lon" validate:"min=-180,max=180"`
	RadiusKm     float64 `json:"radius_km" validate:"gt=0"`
	MinMagnitude float64 `json:"min_magnitude" validate:"min=0,max=10"`
}

// DistanceKm returns the flat-earth distance in kilometers between the zone
// center and the given coordinates (degree difference x 111 km/degree,
// combined Euclidean).
func (z AlertZone) DistanceKm(lat, lon float64) float64 {
	dLat := (lat - z.CenterLat) * KmPerDegree
	dLon := (lon - z.CenterLon) * KmPerDegree
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// Contains reports whether an event at the given coordinates and magnitude
// falls inside this zone: within RadiusKm of the center and at or above the
// zone's magnitude floor.
func (z AlertZone) Contains(lat, lon, magnitude float64) bool {
	if magnitude < z.MinMagnitude {
		return false
	}
	return z.DistanceKm(lat, lon) <= z.RadiusKm
}

// Alert pairs a SeismicEvent with the zone it matched. Ephemeral; it is not
// persisted beyond whatever the sinks themselves record. AlertTime is when
// the monitor raised the alert, distinct from the event's origin time.
type Alert struct {
	ID        string       `json:"id"`
	ZoneName  string       `json:"zone_name"`
	Event     SeismicEvent `json:"event"`
	Severity  Severity     `json:"severity"`
	AlertTime time.Time    `json:"alert_time"`
}

// MonitorState is the persisted deduplication state of a monitor. Ids are
// only ever added to SeenIDs, never removed; unbounded growth is an accepted
// limitation at this scope.
type MonitorState struct {
	SeenIDs   map[string]struct{}
	LastCheck *time.Time
}

// NewMonitorState returns an empty state.
func NewMonitorState() *MonitorState {
	return &MonitorState{SeenIDs: make(map[string]struct{})}
}

// Seen reports whether the event id has already been processed.
func (s *MonitorState) Seen(id string) bool {
	_, ok := s.SeenIDs[id]
	return ok
}

// MarkSeen records the event id in the seen set.
func (s *MonitorState) MarkSeen(id string) {
	if s.SeenIDs == nil {
		s.SeenIDs = make(map[string]struct{})
	}
	s.SeenIDs[id] = struct{}{}
}

// Clone returns a deep copy. Externally-facing reads must use a copy, never
// the live state, so a status endpoint on another goroutine cannot observe a
// torn write.
func (s *MonitorState) Clone() *MonitorState {
	c := &MonitorState{SeenIDs: make(map[string]struct{}, len(s.SeenIDs))}
	for id := range s.SeenIDs {
		c.SeenIDs[id] = struct{}{}
	}
	if s.LastCheck != nil {
		t := *s.LastCheck
		c.LastCheck = &t
	}
	return c
}

// MonitorSnapshot is a point-in-time copy of monitor status for the API.
type MonitorSnapshot struct {
	Zones      []AlertZone `json:"zones"`
	Sinks      []string    `json:"sinks"`
	SeenCount  int         `json:"seen_count"`
	LastCheck  *time.Time  `json:"last_check,omitempty"`
	PollCycles uint64      `json:"poll_cycles"`
	Running    bool        `json:"running"`
}

// EventStats aggregates recent catalog activity for the dashboard.
type EventStats struct {
	Total                 int            `json:"total"`
	Recent24h             int            `json:"recent_24h"`
	AverageMagnitude      float64        `json:"average_magnitude"`
	MaxMagnitude          float64        `json:"max_magnitude"`
	MagnitudeDistribution map[string]int `json:"magnitude_distribution"`
}

// MagnitudeBucket returns the histogram bucket label for a magnitude,
// matching the dashboard's fixed buckets.
func MagnitudeBucket(mag float64) string {
	switch {
	case mag < 2.0:
		return "<2.0"
	case mag < 3.0:
		return "2.0-2.9"
	case mag < 4.0:
		return "3.0-3.9"
	case mag < 5.0:
		return "4.0-4.9"
	case mag < 6.0:
		return "5.0-5.9"
	default:
		return "6.0+"
	}
}
