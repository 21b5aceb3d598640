package contract

import (
	"testing"
	"time"

	"github.com/huangsam/backupwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Limit:             10,
		Workers:           4,
		Output:            "text",
		Color:             "yes",
		MetadataBackend:   "sqlite",
		MetadataDBConnect: "metadata.db",
		HistoryBackend:    "none",
		BackendURL:        "http://localhost:8080/api/",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(in *ConfigRawInput)
		expectError bool
	}{
		{"valid minimal config", func(*ConfigRawInput) {}, false},
		{"limit minus one", func(in *ConfigRawInput) { in.Limit = -1 }, false},
		{"limit zero", func(in *ConfigRawInput) { in.Limit = 0 }, true},
		{"limit too large", func(in *ConfigRawInput) { in.Limit = MaxAlertLimit + 1 }, true},
		{"limit minus two", func(in *ConfigRawInput) { in.Limit = -2 }, true},
		{"zero workers", func(in *ConfigRawInput) { in.Workers = 0 }, true},
		{"invalid output", func(in *ConfigRawInput) { in.Output = "xml" }, true},
		{"invalid color", func(in *ConfigRawInput) { in.Color = "sometimes" }, true},
		{"invalid backend url", func(in *ConfigRawInput) { in.BackendURL = "ftp://host/" }, true},
		{"invalid timeout", func(in *ConfigRawInput) { in.BackendTimeout = "soon" }, true},
		{"negative rate", func(in *ConfigRawInput) { in.BackendRate = -1 }, true},
		{"metadata none", func(in *ConfigRawInput) { in.MetadataBackend = "none" }, true},
		{"metadata sqlite without path", func(in *ConfigRawInput) { in.MetadataDBConnect = "" }, true},
		{"metadata mysql bad conn", func(in *ConfigRawInput) {
			in.MetadataBackend = "mysql"
			in.MetadataDBConnect = "root@localhost"
		}, true},
		{"history unknown", func(in *ConfigRawInput) { in.HistoryBackend = "mongo" }, true},
		{"shared sqlite file", func(in *ConfigRawInput) {
			in.HistoryBackend = "sqlite"
			in.HistoryDBConnect = "metadata.db"
		}, true},
		{"bad start", func(in *ConfigRawInput) { in.Start = "last tuesday" }, true},
		{"start after stop", func(in *ConfigRawInput) {
			in.Start = "1 day ago"
			in.Stop = "2 days ago"
		}, true},
		{"negative threshold", func(in *ConfigRawInput) { in.SizeThresholdInc = -0.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			err := ProcessAndValidate(&Config{}, input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))

	assert.Equal(t, 10, cfg.AlertLimit)
	assert.True(t, cfg.Start.IsZero())
	assert.WithinDuration(t, time.Now(), cfg.Stop, time.Minute)
	assert.Equal(t, DefaultBackendTimeout, cfg.BackendTimeout)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultListenAddr, cfg.Listen)
	assert.Equal(t, schema.NoneBackend, cfg.HistoryBackend)
	for _, kind := range schema.AllBackupKinds {
		assert.InDelta(t, DefaultSizeThreshold, cfg.SizeThresholds[kind], 1e-9)
	}
}

func TestProcessAndValidateOverrides(t *testing.T) {
	input := validInput()
	input.Start = "2024-01-01T00:00:00Z"
	input.Stop = "2024-02-01T00:00:00Z"
	input.BackendTimeout = "5s"
	input.SizeThresholdFull = 0.5
	input.Output = "JSON"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), cfg.Start)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), cfg.Stop)
	assert.Equal(t, 5*time.Second, cfg.BackendTimeout)
	assert.Equal(t, schema.JSONOut, cfg.Output)
	assert.InDelta(t, 0.5, cfg.SizeThresholds[schema.FullBackup], 1e-9)
	assert.InDelta(t, DefaultSizeThreshold, cfg.SizeThresholds[schema.CopyBackup], 1e-9)
}

func TestPostgresMetadataFromEnv(t *testing.T) {
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("DATABASE_DATABASE", "metadata")

	input := validInput()
	input.MetadataBackend = "postgresql"
	input.MetadataDBConnect = ""

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Contains(t, cfg.MetadataDBConnect, "host=db.internal")
	assert.Contains(t, cfg.MetadataDBConnect, "dbname=metadata")
	assert.Contains(t, cfg.MetadataDBConnect, "user=postgres")
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		backend   schema.DatabaseBackend
		conn      string
		expectErr bool
	}{
		{schema.SQLiteBackend, "", false},
		{schema.NoneBackend, "", false},
		{schema.MySQLBackend, "user:pass@tcp(localhost:3306)/db", false},
		{schema.MySQLBackend, "user:pass@localhost", true},
		{schema.MySQLBackend, "", true},
		{schema.PostgreSQLBackend, "host=localhost dbname=x", false},
		{schema.PostgreSQLBackend, "postgres://u:p@localhost:5432/x", false},
		{schema.PostgreSQLBackend, "dbname=x", true},
		{schema.PostgreSQLBackend, "host=localhost", true},
	}
	for _, tt := range tests {
		err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
		if tt.expectErr {
			assert.Error(t, err, "%s %q", tt.backend, tt.conn)
		} else {
			assert.NoError(t, err, "%s %q", tt.backend, tt.conn)
		}
	}
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{AlertLimit: 10, SizeThresholds: map[schema.BackupKind]float64{schema.FullBackup: 0.2}}
	clone := cfg.WithAlertLimit(-1)
	clone.SizeThresholds[schema.FullBackup] = 0.9

	assert.Equal(t, 10, cfg.AlertLimit)
	assert.Equal(t, -1, clone.AlertLimit)
	assert.InDelta(t, 0.2, cfg.SizeThresholds[schema.FullBackup], 1e-9)
}
