package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"quakewatch/internal/types"
)

// noopSleep is a sleep function that does nothing, for fast tests.
func noopSleep(time.Duration) {}

type stubClock struct{ t time.Time }

func (c stubClock) Now() time.Time { return c.t }

// newTestClient creates a catalog Client pointed at the given test server
// with fast retries and no real sleep.
func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c := NewClient(ClientConfig{
		BaseURL:   serverURL,
		Timeout:   5 * time.Second,
		UserAgent: "QuakeWatch-Test/1.0",
		Retry:     &RetryPolicy{MaxRetries: 2, MinWait: time.Millisecond, MaxWait: 5 * time.Millisecond},
	})
	c.SetSleepFunc(noopSleep)
	c.SetClock(stubClock{t: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)})
	return c
}

const sampleFeed = `{
	"features": [
		{
			"id": "us7000abcd",
			"properties": {"mag": 6.1, "place": "120 km SSE of Hachijo-jima, Japan", "time": 1742040000000, "url": "https://example.org/us7000abcd", "tsunami": 1, "felt": 42, "sig": 573},
			"geometry": {"coordinates": [139.78, 33.11, 35.2]}
		},
		{
			"id": "nc75012345",
			"properties": {"mag": 4.2, "place": "3 km NW of Parkfield, CA", "time": 1742043600000, "url": "https://example.org/nc75012345", "tsunami": 0, "sig": 271},
			"geometry": {"coordinates": [-120.45, 35.93, 8.1]}
		}
	]
}`

func TestQuery_ParsesFeed(t *testing.T) {
	var gotQuery atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	events, err := client.Query(context.Background(), QueryParams{MinMagnitude: 4.0, Days: 1, Limit: 200})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	ev := events[0]
	if ev.ID != "us7000abcd" {
		t.Errorf("id = %q", ev.ID)
	}
	if ev.Magnitude != 6.1 {
		t.Errorf("magnitude = %v", ev.Magnitude)
	}
	// GeoJSON coordinates are [lon, lat, depth].
	if ev.Longitude != 139.78 || ev.Latitude != 33.11 || ev.DepthKm != 35.2 {
		t.Errorf("coordinates = (%v, %v, %v)", ev.Latitude, ev.Longitude, ev.DepthKm)
	}
	if !ev.Tsunami {
		t.Error("tsunami flag not set")
	}
	if ev.Felt != 42 {
		t.Errorf("felt = %d", ev.Felt)
	}
	if want := time.UnixMilli(1742040000000).UTC(); !ev.Time.Equal(want) {
		t.Errorf("time = %v, want %v", ev.Time, want)
	}
	if events[1].Felt != 0 {
		t.Errorf("missing felt should default to 0, got %d", events[1].Felt)
	}

	q := gotQuery.Load().(url.Values)
	if got := q["format"]; len(got) != 1 || got[0] != "geojson" {
		t.Errorf("format = %v", got)
	}
	if got := q["minmagnitude"]; len(got) != 1 || got[0] != "4" {
		t.Errorf("minmagnitude = %v", got)
	}
	if got := q["orderby"]; len(got) != 1 || got[0] != "magnitude" {
		t.Errorf("orderby = %v", got)
	}
	if got := q["limit"]; len(got) != 1 || got[0] != "200" {
		t.Errorf("limit = %v", got)
	}
	if got := q["starttime"]; len(got) != 1 || got[0] != "2026-03-14" {
		t.Errorf("starttime = %v", got)
	}
}

func TestQuery_SkipsMalformedFeatures(t *testing.T) {
	feed := `{
		"features": [
			{"id": "", "properties": {"mag": 5.0, "time": 0}, "geometry": {"coordinates": [1, 2, 3]}},
			{"id": "no-mag", "properties": {"mag": null, "time": 0}, "geometry": {"coordinates": [1, 2, 3]}},
			{"id": "short-coords", "properties": {"mag": 5.0, "time": 0}, "geometry": {"coordinates": [1, 2]}},
			{"id": "ok", "properties": {"mag": 5.0, "place": "somewhere", "time": 0}, "geometry": {"coordinates": [1, 2, 3]}}
		]
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))
	defer server.Close()

	events, err := newTestClient(t, server.URL).Query(context.Background(), QueryParams{MinMagnitude: 3.0, Days: 1, Limit: 10})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(events) != 1 || events[0].ID != "ok" {
		t.Fatalf("expected only the well-formed feature, got %+v", events)
	}
}

func TestQuery_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Query(context.Background(), QueryParams{MinMagnitude: 3.0, Days: 1, Limit: 10})

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeUpstreamCatalog {
		t.Fatalf("expected %s, got: %v", types.ErrCodeUpstreamCatalog, err)
	}
}

func TestQuery_BadRequestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Query(context.Background(), QueryParams{MinMagnitude: 3.0, Days: 1, Limit: 10})

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeUpstreamCatalog {
		t.Fatalf("expected %s, got: %v", types.ErrCodeUpstreamCatalog, err)
	}
}

func TestQuery_RetriesServerErrorThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	events, err := newTestClient(t, server.URL).Query(context.Background(), QueryParams{MinMagnitude: 3.0, Days: 1, Limit: 10})
	if err != nil {
		t.Fatalf("expected recovery on retry, got: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestQuery_RateLimitExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Query(context.Background(), QueryParams{MinMagnitude: 3.0, Days: 1, Limit: 10})

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeUpstreamRateLimited {
		t.Fatalf("expected %s, got: %v", types.ErrCodeUpstreamRateLimited, err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", calls.Load())
	}
}

func TestComputeBackoff_RespectsRetryAfterSeconds(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, MinWait: 100 * time.Millisecond, MaxWait: 5 * time.Second}
	c := newResilientClient(&http.Client{}, "test", policy, "")

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "2")

	if got := c.computeBackoff(0, resp); got != 2*time.Second {
		t.Errorf("backoff = %v, want 2s", got)
	}

	// Retry-After beyond MaxWait is clamped.
	resp.Header.Set("Retry-After", "60")
	if got := c.computeBackoff(0, resp); got != 5*time.Second {
		t.Errorf("backoff = %v, want 5s clamp", got)
	}
}

func TestComputeBackoff_JitterWithinBounds(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, MinWait: 100 * time.Millisecond, MaxWait: time.Second}
	c := newResilientClient(&http.Client{}, "test", policy, "")

	for attempt := 0; attempt < 5; attempt++ {
		got := c.computeBackoff(attempt, nil)
		if got < policy.MinWait || got > policy.MaxWait {
			t.Errorf("attempt %d: backoff %v outside [%v, %v]", attempt, got, policy.MinWait, policy.MaxWait)
		}
	}
}
