package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with a clean environment failed: %v", err)
	}

	if cfg.Environment != "local" {
		t.Errorf("Environment = %q, want local", cfg.Environment)
	}
	if cfg.Service != "quakewatch" {
		t.Errorf("Service = %q", cfg.Service)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Catalog.BaseURL != "https://earthquake.usgs.gov/fdsnws/event/1/query" {
		t.Errorf("Catalog.BaseURL = %q", cfg.Catalog.BaseURL)
	}
	if cfg.Catalog.MinMagnitude != 3.0 {
		t.Errorf("Catalog.MinMagnitude = %v", cfg.Catalog.MinMagnitude)
	}
	if cfg.Monitor.Interval != time.Minute {
		t.Errorf("Monitor.Interval = %v", cfg.Monitor.Interval)
	}
	if cfg.Monitor.StateBackend != "file" {
		t.Errorf("Monitor.StateBackend = %q", cfg.Monitor.StateBackend)
	}
	if !cfg.Sinks.ConsoleEnabled {
		t.Error("console sink should be enabled by default")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("CATALOG_MIN_MAGNITUDE", "2.5")
	t.Setenv("MONITOR_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Environment != "prod" {
		t.Errorf("Environment = %q", cfg.Environment)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Catalog.MinMagnitude != 2.5 {
		t.Errorf("Catalog.MinMagnitude = %v", cfg.Catalog.MinMagnitude)
	}
	if cfg.Monitor.Interval != 30*time.Second {
		t.Errorf("Monitor.Interval = %v", cfg.Monitor.Interval)
	}
}

func TestLoad_ParsingFailure(t *testing.T) {
	t.Setenv("CATALOG_MIN_MAGNITUDE", "not-a-number")

	_, err := Load()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Type != ErrParsing {
		t.Fatalf("expected %s, got: %v", ErrParsing, err)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown environment", "APP_ENV", "production"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
		{"unknown state backend", "MONITOR_STATE_BACKEND", "s3"},
		{"magnitude out of range", "CATALOG_MIN_MAGNITUDE", "11"},
		{"days out of range", "CATALOG_DAYS", "31"},
		{"bad catalog url", "CATALOG_BASE_URL", "not-a-url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) || cfgErr.Type != ErrValidation {
				t.Fatalf("expected %s, got: %v", ErrValidation, err)
			}
		})
	}
}

func TestZones_DefaultsWhenUnset(t *testing.T) {
	cfg := &Config{}

	zones, err := cfg.Zones()
	if err != nil {
		t.Fatalf("Zones failed: %v", err)
	}
	if len(zones) != len(DefaultZones) {
		t.Fatalf("expected %d default zones, got %d", len(DefaultZones), len(zones))
	}
	if zones[0].Name != "Global Major Events" {
		t.Errorf("first default zone = %q", zones[0].Name)
	}
}

func TestZones_ParsesJSON(t *testing.T) {
	cfg := &Config{
		ZonesJSON: `[{"name":"Japan","center_lat":36.2,"center_lon":138.25,"radius_km":1000,"min_magnitude":4.5}]`,
	}

	zones, err := cfg.Zones()
	if err != nil {
		t.Fatalf("Zones failed: %v", err)
	}
	if len(zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(zones))
	}
	z := zones[0]
	if z.Name != "Japan" || z.RadiusKm != 1000 || z.MinMagnitude != 4.5 {
		t.Errorf("zone = %+v", z)
	}
}

func TestZones_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not json", `{broken`},
		{"empty list", `[]`},
		{"missing name", `[{"center_lat":0,"center_lon":0,"radius_km":100,"min_magnitude":4}]`},
		{"latitude out of range", `[{"name":"x","center_lat":91,"center_lon":0,"radius_km":100,"min_magnitude":4}]`},
		{"longitude out of range", `[{"name":"x","center_lat":0,"center_lon":181,"radius_km":100,"min_magnitude":4}]`},
		{"zero radius", `[{"name":"x","center_lat":0,"center_lon":0,"radius_km":0,"min_magnitude":4}]`},
		{"magnitude out of range", `[{"name":"x","center_lat":0,"center_lon":0,"radius_km":100,"min_magnitude":11}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{ZonesJSON: tt.json}

			_, err := cfg.Zones()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) || cfgErr.Type != ErrZones {
				t.Fatalf("expected %s, got: %v", ErrZones, err)
			}
		})
	}
}
