// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
//  5. Parse and validate the alert zone list.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"quakewatch/internal/types"
)

// ConfigError is a diagnostic error type returned by Load to aid debugging.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DefaultZones are the zones monitored when ALERT_ZONES_JSON is not set.
var DefaultZones = []types.AlertZone{
	{Name: "Global Major Events", CenterLat: 0, CenterLon: 0, RadiusKm: 50000, MinMagnitude: 6.0},
	{Name: "Pacific Ring of Fire", CenterLat: 0, CenterLon: -160, RadiusKm: 15000, MinMagnitude: 5.0},
	{Name: "California", CenterLat: 36.7783, CenterLon: -119.4179, RadiusKm: 500, MinMagnitude: 4.0},
	{Name: "Japan", CenterLat: 36.2048, CenterLon: 138.2529, RadiusKm: 1000, MinMagnitude: 4.5},
}

// Load loads and validates the QuakeWatch configuration from the environment.
func Load() (*Config, error) {
	// Enforce UTC to prevent drift bugs between the poll loop, the state
	// file, and the upstream catalog's timestamps.
	time.Local = time.UTC

	// Load .env if present. godotenv does NOT override variables that are
	// already set in the environment.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration failed validation",
			Err:     err,
		}
	}

	return &cfg, nil
}

// Zones returns the configured alert zones: the parsed ALERT_ZONES_JSON list,
// or DefaultZones when the variable is unset. Each zone is validated.
func (c *Config) Zones() ([]types.AlertZone, error) {
	if strings.TrimSpace(c.ZonesJSON) == "" {
		return DefaultZones, nil
	}

	var zones []types.AlertZone
	if err := json.Unmarshal([]byte(c.ZonesJSON), &zones); err != nil {
		return nil, &ConfigError{
			Type:    ErrZones,
			Message: "ALERT_ZONES_JSON is not valid JSON",
			Err:     err,
		}
	}
	if len(zones) == 0 {
		return nil, &ConfigError{
			Type:    ErrZones,
			Message: "ALERT_ZONES_JSON contains no zones",
		}
	}

	validate := validator.New()
	for i, z := range zones {
		if err := validate.Struct(z); err != nil {
			return nil, &ConfigError{
				Type:    ErrZones,
				Message: fmt.Sprintf("zone %d (%q) is invalid", i, z.Name),
				Err:     err,
			}
		}
	}
	return zones, nil
}
