// Package main is a one-shot CLI that queries the seismic catalog and prints
// the results as a table or CSV. Useful for checking query bounds before
// configuring the monitor, and for ad-hoc exports.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"quakewatch/internal/catalog"
	"quakewatch/internal/types"
)

func main() {
	var (
		baseURL = flag.String("base-url", "https://earthquake.usgs.gov/fdsnws/event/1/query", "catalog endpoint")
		minMag  = flag.Float64("min-mag", 4.0, "minimum magnitude")
		days    = flag.Int("days", 1, "lookback window in days")
		limit   = flag.Int("limit", 20, "maximum events to fetch")
		asCSV   = flag.Bool("csv", false, "emit CSV instead of a table")
		timeout = flag.Duration("timeout", 30*time.Second, "request timeout")
	)
	flag.Parse()

	if err := run(*baseURL, *minMag, *days, *limit, *asCSV, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "quakefetch: %v\n", err)
		os.Exit(1)
	}
}

func run(baseURL string, minMag float64, days, limit int, asCSV bool, timeout time.Duration) error {
	client := catalog.NewClient(catalog.ClientConfig{
		BaseURL:   baseURL,
		Timeout:   timeout,
		UserAgent: "QuakeWatch-CLI/1.0",
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout+10*time.Second)
	defer cancel()

	events, err := client.Query(ctx, catalog.QueryParams{
		MinMagnitude: minMag,
		Days:         days,
		Limit:        limit,
	})
	if err != nil {
		return err
	}

	if asCSV {
		return writeCSV(os.Stdout, events)
	}
	writeTable(os.Stdout, events)
	return nil
}

func writeTable(w io.Writer, events []types.SeismicEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "no events found")
		return
	}
	fmt.Fprintf(w, "%-6s %-20s %-10s %s\n", "MAG", "TIME (UTC)", "DEPTH", "PLACE")
	for _, ev := range events {
		fmt.Fprintf(w, "%-6.1f %-20s %-10s %s\n",
			ev.Magnitude,
			ev.Time.UTC().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.1fkm", ev.DepthKm),
			ev.Place,
		)
	}
	fmt.Fprintf(w, "\n%d events\n", len(events))
}

func writeCSV(w io.Writer, events []types.SeismicEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "magnitude", "place", "time", "latitude", "longitude", "depth_km", "tsunami", "significance"}); err != nil {
		return err
	}
	for _, ev := range events {
		record := []string{
			ev.ID,
			strconv.FormatFloat(ev.Magnitude, 'f', 1, 64),
			ev.Place,
			ev.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(ev.Latitude, 'f', 4, 64),
			strconv.FormatFloat(ev.Longitude, 'f', 4, 64),
			strconv.FormatFloat(ev.DepthKm, 'f', 1, 64),
			strconv.FormatBool(ev.Tsunami),
			strconv.Itoa(ev.Significance),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
