package contract

import (
	"fmt"
	"maps"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/backupwatch/schema"
)

// Default values for configuration.
const (
	DefaultAlertLimit     = 10
	MaxAlertLimit         = 10000
	DefaultSizeThreshold  = 0.2
	DefaultBatchSize      = 100
	DefaultBackendURL     = "http://localhost:8080/api/v1/"
	DefaultBackendTimeout = 30 * time.Second
	DefaultListenAddr     = ":5000"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration for an analysis.
// This struct remains the "final, validated" config.
type Config struct {
	AlertLimit int // -1 keeps every alert
	Workers    int

	// Start is the explicit lower bound. Zero means the watermark decides.
	Start time.Time
	Stop  time.Time

	Output     schema.OutputMode
	OutputFile string
	UseColors  bool

	MetadataBackend   schema.DatabaseBackend
	MetadataDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	BackendURL     string
	BackendTimeout time.Duration
	BackendRate    float64 // requests per second, 0 is unlimited
	DryRun         bool

	// SizeThresholds is the relative change per backup kind above which a size alert fires.
	SizeThresholds map[schema.BackupKind]float64

	MetricsFile    string
	MetricsPushURL string

	LogLevel string
	LogFile  string

	Listen    string
	BatchSize int
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Limit             int     `mapstructure:"limit"`
	Workers           int     `mapstructure:"workers"`
	Start             string  `mapstructure:"start"`
	Stop              string  `mapstructure:"stop"`
	Output            string  `mapstructure:"output"`
	OutputFile        string  `mapstructure:"output-file"`
	Color             string  `mapstructure:"color"`
	MetadataBackend   string  `mapstructure:"metadata-backend"`
	MetadataDBConnect string  `mapstructure:"metadata-db-connect"`
	HistoryBackend    string  `mapstructure:"history-backend"`
	HistoryDBConnect  string  `mapstructure:"history-db-connect"`
	BackendURL        string  `mapstructure:"backend-url"`
	BackendTimeout    string  `mapstructure:"backend-timeout"`
	BackendRate       float64 `mapstructure:"backend-rate"`
	DryRun            bool    `mapstructure:"dry-run"`
	MetricsFile       string  `mapstructure:"metrics-file"`
	MetricsPushURL    string  `mapstructure:"metrics-push-url"`
	LogLevel          string  `mapstructure:"log-level"`
	LogFile           string  `mapstructure:"log-file"`

	// --- Fields from sizeCmd.Flags() ---
	SizeThresholdFull float64 `mapstructure:"size-threshold-full"`
	SizeThresholdInc  float64 `mapstructure:"size-threshold-inc"`
	SizeThresholdDiff float64 `mapstructure:"size-threshold-diff"`
	SizeThresholdCopy float64 `mapstructure:"size-threshold-copy"`

	// --- Fields from serveCmd.Flags() ---
	Listen string `mapstructure:"listen"`

	// --- Fields from syncCmd.Flags() ---
	BatchSize int `mapstructure:"batch-size"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.SizeThresholds != nil {
		clone.SizeThresholds = make(map[schema.BackupKind]float64, len(c.SizeThresholds))
		maps.Copy(clone.SizeThresholds, c.SizeThresholds)
	}
	return &clone
}

// WithAlertLimit returns a copy of the Config with another alert limit.
func (c *Config) WithAlertLimit(limit int) *Config {
	clone := c.Clone()
	clone.AlertLimit = limit
	return clone
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input); err != nil {
		return err
	}
	if err := processSizeThresholds(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateAlertLimit checks an alert limit: -1 or a value in 1..MaxAlertLimit.
func ValidateAlertLimit(limit int) error {
	if limit == -1 {
		return nil
	}
	if limit <= 0 || limit > MaxAlertLimit {
		return fmt.Errorf("alert limit must be -1 or between 1 and %d (received %d)", MaxAlertLimit, limit)
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
			return nil
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// PostgresConnFromEnv assembles a PostgreSQL connection string from the
// DATABASE_* variables used by the metadata deployment.
func PostgresConnFromEnv() string {
	get := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		get("DATABASE_HOST", "localhost"),
		get("DATABASE_PORT", "5432"),
		get("DATABASE_USER", "postgres"),
		get("DATABASE_PASSWORD", "postgres"),
		get("DATABASE_DATABASE", "postgres"),
	)
}

// validateSimpleInputs processes and validates all non-backend fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.OutputFile = input.OutputFile
	cfg.DryRun = input.DryRun
	cfg.MetricsFile = input.MetricsFile
	cfg.MetricsPushURL = input.MetricsPushURL
	cfg.LogLevel = input.LogLevel
	cfg.LogFile = input.LogFile

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. AlertLimit Validation ---
	if err := ValidateAlertLimit(input.Limit); err != nil {
		return err
	}
	cfg.AlertLimit = input.Limit

	// --- 2. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 3. Output Validation ---
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	// --- 4. Backend Client Validation ---
	cfg.BackendURL = strings.TrimSpace(input.BackendURL)
	if cfg.BackendURL == "" {
		cfg.BackendURL = DefaultBackendURL
	}
	if !strings.HasPrefix(cfg.BackendURL, "http://") && !strings.HasPrefix(cfg.BackendURL, "https://") {
		return fmt.Errorf("backend-url must start with http:// or https:// (received %q)", cfg.BackendURL)
	}
	cfg.BackendTimeout = DefaultBackendTimeout
	if input.BackendTimeout != "" {
		d, err := ParseDuration(input.BackendTimeout)
		if err != nil {
			return fmt.Errorf("invalid --backend-timeout: %w", err)
		}
		cfg.BackendTimeout = d
	}
	if input.BackendRate < 0 {
		return fmt.Errorf("backend-rate cannot be negative (received %.2f)", input.BackendRate)
	}
	cfg.BackendRate = input.BackendRate

	// --- 5. Serve and Sync Validation ---
	cfg.Listen = input.Listen
	if cfg.Listen == "" {
		cfg.Listen = DefaultListenAddr
	}
	cfg.BatchSize = input.BatchSize
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 0 {
		return fmt.Errorf("batch-size must be greater than 0 (received %d)", input.BatchSize)
	}

	return nil
}

// validateBackendConfigs validates metadata and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Metadata Backend Validation ---
	cfg.MetadataBackend = schema.DatabaseBackend(strings.ToLower(input.MetadataBackend))
	if cfg.MetadataBackend == schema.NoneBackend {
		return fmt.Errorf("metadata backend cannot be none")
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.MetadataBackend]; !ok {
		return fmt.Errorf("invalid metadata backend '%s'. must be sqlite, mysql, postgresql", input.MetadataBackend)
	}
	cfg.MetadataDBConnect = input.MetadataDBConnect
	if cfg.MetadataDBConnect == "" && cfg.MetadataBackend == schema.PostgreSQLBackend {
		cfg.MetadataDBConnect = PostgresConnFromEnv()
	}
	if cfg.MetadataDBConnect == "" && cfg.MetadataBackend == schema.SQLiteBackend {
		return fmt.Errorf("metadata-db-connect is required when using %s backend", cfg.MetadataBackend)
	}
	if err := ValidateDatabaseConnectionString(cfg.MetadataBackend, cfg.MetadataDBConnect); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		cfg.HistoryBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("history: %w", err)
	}

	// Validate that metadata and history do not share a SQLite file
	if cfg.MetadataBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if historyPath == cfg.MetadataDBConnect {
			return fmt.Errorf("metadata and history storage must use different SQLite database files. Both resolve to %q", historyPath)
		}
	}

	return nil
}

// processTimeRange handles the date parsing and time range validation.
func processTimeRange(cfg *Config, input *ConfigRawInput) error {
	now := time.Now()
	cfg.Stop = now
	cfg.Start = time.Time{}

	// --- Process Start Time ---
	if input.Start != "" {
		t, err := ParseTimeArg(input.Start, now)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
		cfg.Start = t
	}

	// --- Process Stop Time ---
	if input.Stop != "" {
		t, err := ParseTimeArg(input.Stop, now)
		if err != nil {
			return fmt.Errorf("invalid stop date: %w", err)
		}
		cfg.Stop = t
	}

	// --- Final Validation ---
	if !cfg.Start.IsZero() && cfg.Start.After(cfg.Stop) {
		return fmt.Errorf("start time (%s) cannot be after stop time (%s)", cfg.Start.Format(DateTimeFormat), cfg.Stop.Format(DateTimeFormat))
	}

	return nil
}

// processSizeThresholds maps the per-kind thresholds and validates them.
func processSizeThresholds(cfg *Config, input *ConfigRawInput) error {
	raw := map[schema.BackupKind]float64{
		schema.FullBackup:         input.SizeThresholdFull,
		schema.IncrementalBackup:  input.SizeThresholdInc,
		schema.DifferentialBackup: input.SizeThresholdDiff,
		schema.CopyBackup:         input.SizeThresholdCopy,
	}

	cfg.SizeThresholds = make(map[schema.BackupKind]float64, len(raw))
	for kind, threshold := range raw {
		if threshold == 0 {
			threshold = DefaultSizeThreshold
		}
		if threshold < 0 {
			return fmt.Errorf("size threshold for kind %s cannot be negative (received %.2f)", kind, threshold)
		}
		cfg.SizeThresholds[kind] = threshold
	}
	return nil
}
