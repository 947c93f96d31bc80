package main

import (
	"strings"
	"testing"
	"time"

	"quakewatch/internal/types"
)

func fetchedEvents() []types.SeismicEvent {
	return []types.SeismicEvent{
		{
			ID:        "us7000abcd",
			Magnitude: 6.1,
			Place:     "120 km SSE of Hachijo-jima, Japan",
			Time:      time.Date(2026, 3, 15, 11, 20, 0, 0, time.UTC),
			Latitude:  33.11,
			Longitude: 139.78,
			DepthKm:   35.2,
			Tsunami:   true,
		},
	}
}

func TestWriteTable(t *testing.T) {
	var buf strings.Builder
	writeTable(&buf, fetchedEvents())

	out := buf.String()
	for _, want := range []string{"MAG", "6.1", "2026-03-15 11:20:00", "35.2km", "Hachijo-jima", "1 events"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTable_Empty(t *testing.T) {
	var buf strings.Builder
	writeTable(&buf, nil)

	if !strings.Contains(buf.String(), "no events found") {
		t.Errorf("empty table output = %q", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf strings.Builder
	if err := writeCSV(&buf, fetchedEvents()); err != nil {
		t.Fatalf("writeCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != "id,magnitude,place,time,latitude,longitude,depth_km,tsunami,significance" {
		t.Errorf("header = %q", lines[0])
	}
	for _, want := range []string{"us7000abcd", "6.1", "2026-03-15T11:20:00Z", "33.1100", "139.7800", "true"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row missing %q: %s", want, lines[1])
		}
	}
}
