package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"quakewatch/internal/types"
)

// maxResponseBody caps how much of a catalog response we read (8 MB). A full
// day of global events at the default limit is well under 1 MB.
const maxResponseBody = 8 << 20

// QueryParams bound a catalog query by magnitude, lookback window, and count.
type QueryParams struct {
	MinMagnitude float64
	Days         int
	Limit        int
}

// Source is the contract the monitor depends on. Any error from Query is
// treated by the caller as "no events this cycle".
type Source interface {
	Query(ctx context.Context, params QueryParams) ([]types.SeismicEvent, error)
}

// Client queries the USGS FDSN event service and normalizes results into
// SeismicEvent records. It holds no state between queries.
type Client struct {
	baseURL string
	http    *resilientClient
	clock   types.Clock
}

// ClientConfig holds the configuration for creating a catalog Client.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Retry     *RetryPolicy // nil means DefaultRetryPolicy
}

// NewClient creates a catalog Client with circuit breaking and retries.
func NewClient(cfg ClientConfig) *Client {
	policy := DefaultRetryPolicy()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    newResilientClient(&http.Client{Timeout: timeout}, "usgs-catalog", policy, cfg.UserAgent),
		clock:   types.RealClock{},
	}
}

// SetClock overrides the clock for testing.
func (c *Client) SetClock(clock types.Clock) { c.clock = clock }

// SetSleepFunc overrides the retry sleep function for testing.
func (c *Client) SetSleepFunc(fn func(time.Duration)) { c.http.sleepFn = fn }

// Query fetches events from the catalog ordered by magnitude descending.
// The lookback window is [now - Days, now].
func (c *Client) Query(ctx context.Context, params QueryParams) ([]types.SeismicEvent, error) {
	now := c.clock.Now()

	q := url.Values{}
	q.Set("format", "geojson")
	q.Set("starttime", now.AddDate(0, 0, -params.Days).Format("2006-01-02"))
	q.Set("endtime", now.Format("2006-01-02T15:04:05"))
	q.Set("minmagnitude", strconv.FormatFloat(params.MinMagnitude, 'f', -1, 64))
	q.Set("limit", strconv.Itoa(params.Limit))
	q.Set("orderby", "magnitude")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building catalog request", err)
	}

	resp, err := c.http.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamCatalog,
			fmt.Sprintf("catalog returned status %d", resp.StatusCode),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamCatalog, "reading catalog response", err)
	}

	return parseFeatureCollection(body)
}

// featureCollection mirrors the subset of USGS GeoJSON we consume.
type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string `json:"id"`
	Properties struct {
		Mag     *float64 `json:"mag"`
		Place   string   `json:"place"`
		Time    int64    `json:"time"` // ms since epoch
		URL     string   `json:"url"`
		Tsunami int      `json:"tsunami"`
		Felt    *int     `json:"felt"`
		Sig     int      `json:"sig"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat, depth_km]
	} `json:"geometry"`
}

// parseFeatureCollection normalizes a GeoJSON feature collection into flat
// SeismicEvent records. Features with no magnitude or malformed geometry are
// skipped rather than failing the whole batch.
func parseFeatureCollection(body []byte) ([]types.SeismicEvent, error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamCatalog, "parsing catalog response", err)
	}

	events := make([]types.SeismicEvent, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.ID == "" || f.Properties.Mag == nil || len(f.Geometry.Coordinates) < 3 {
			continue
		}
		ev := types.SeismicEvent{
			ID:           f.ID,
			Magnitude:    *f.Properties.Mag,
			Place:        f.Properties.Place,
			Time:         time.UnixMilli(f.Properties.Time).UTC(),
			Longitude:    f.Geometry.Coordinates[0],
			Latitude:     f.Geometry.Coordinates[1],
			DepthKm:      f.Geometry.Coordinates[2],
			URL:          f.Properties.URL,
			Tsunami:      f.Properties.Tsunami > 0,
			Significance: f.Properties.Sig,
		}
		if f.Properties.Felt != nil {
			ev.Felt = *f.Properties.Felt
		}
		events = append(events, ev)
	}
	return events, nil
}
