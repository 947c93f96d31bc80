// Package config defines the global configuration structure for QuakeWatch.
// Configuration is loaded once at process initialization and is immutable
// thereafter. It follows 12-Factor App principles by strictly separating
// code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Struct Defaults (Lowest)
//
// Any missing required value or invalid format causes startup to fail
// immediately (fail fast).
package config

import (
	"time"
)

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"quakewatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Domain Configurations
	Server   ServerConfig
	Catalog  CatalogConfig
	Monitor  MonitorConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Archive  ArchiveConfig
	Sinks    SinkConfig

	// ZonesJSON is a JSON array of alert zones. When empty, the built-in
	// default zones are used.
	// Example: [{"name":"Japan","center_lat":36.2,"center_lon":138.25,"radius_km":1000,"min_magnitude":4.5}]
	ZonesJSON string `envconfig:"ALERT_ZONES_JSON"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// CatalogConfig holds upstream seismic catalog query settings.
type CatalogConfig struct {
	BaseURL string        `envconfig:"CATALOG_BASE_URL" default:"https://earthquake.usgs.gov/fdsnws/event/1/query" validate:"url"`
	Timeout time.Duration `envconfig:"CATALOG_TIMEOUT" default:"30s"`

	// MinMagnitude is the global fetch floor. It should sit below every
	// zone's own floor so zones with looser thresholds still see candidates.
	MinMagnitude float64 `envconfig:"CATALOG_MIN_MAGNITUDE" default:"3.0" validate:"min=0,max=10"`
	Days         int     `envconfig:"CATALOG_DAYS" default:"1" validate:"min=1,max=30"`
	Limit        int     `envconfig:"CATALOG_LIMIT" default:"200" validate:"min=1,max=20000"`
}

// MonitorConfig holds polling loop and state persistence settings.
type MonitorConfig struct {
	Interval     time.Duration `envconfig:"MONITOR_INTERVAL" default:"60s" validate:"min=1s"`
	StateBackend string        `envconfig:"MONITOR_STATE_BACKEND" default:"file" validate:"oneof=file redis"`
	StatePath    string        `envconfig:"MONITOR_STATE_PATH" default:"quakewatch_state.json"`
}

// DatabaseConfig holds the optional Postgres event archive settings.
// When URL is empty the archive is disabled and the API serves events
// straight from the catalog.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// RedisConfig holds the optional Redis connection for the state backend.
type RedisConfig struct {
	Addr      string `envconfig:"REDIS_ADDR"`
	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"quakewatch"`
}

// ArchiveConfig holds cold-storage settings for aged-out events.
type ArchiveConfig struct {
	Enabled   bool          `envconfig:"ARCHIVE_ENABLED" default:"false"`
	Retention time.Duration `envconfig:"ARCHIVE_RETENTION" default:"720h"`
	Interval  time.Duration `envconfig:"ARCHIVE_INTERVAL" default:"24h"`
	OutputDir string        `envconfig:"ARCHIVE_OUTPUT_DIR" default:"archive"`
	BatchSize int           `envconfig:"ARCHIVE_BATCH_SIZE" default:"500" validate:"min=1"`
}

// SinkConfig enables and configures the notification sinks. At least one
// sink must be enabled or the monitor refuses to start.
type SinkConfig struct {
	ConsoleEnabled bool   `envconfig:"SINK_CONSOLE_ENABLED" default:"true"`
	FilePath       string `envconfig:"SINK_FILE_PATH"`

	WebhookURL     string        `envconfig:"SINK_WEBHOOK_URL" validate:"omitempty,url"`
	WebhookSecret  string        `envconfig:"SINK_WEBHOOK_SECRET"`
	WebhookTimeout time.Duration `envconfig:"SINK_WEBHOOK_TIMEOUT" default:"10s"`
	UserAgent      string        `envconfig:"SINK_WEBHOOK_USER_AGENT" default:"QuakeWatch-Webhook/1.0"`

	KafkaBrokers string `envconfig:"SINK_KAFKA_BROKERS"`
	KafkaTopic   string `envconfig:"SINK_KAFKA_TOPIC" default:"quakewatch.alerts"`

	SQSQueueURL string `envconfig:"SINK_SQS_QUEUE_URL" validate:"omitempty,url"`
	AWSRegion   string `envconfig:"AWS_REGION" default:"us-east-1"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrParsing indicates a failure parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrZones indicates the alert zone JSON could not be parsed or validated.
	ErrZones ConfigErrorType = "ZONES_INVALID"
)
