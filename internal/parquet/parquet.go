// Package parquet provides data structures and functions for exporting backupwatch
// run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/backupwatch/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single analysis run.
// This struct maps to the backupwatch_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// Analysis names the analysis (schedule, size, storage, sync)
	Analysis string `parquet:"analysis,snappy,dict"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`

	// AlertCount is the number of alerts the run dispatched (nullable)
	AlertCount *int64 `parquet:"alert_count,optional,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// Alert represents one alert recorded by a run.
// This struct maps to the backupwatch_alerts database table.
type Alert struct {
	AlertUID      string     `parquet:"alert_uid,snappy"`
	RunID         int64      `parquet:"run_id,snappy"`
	Kind          string     `parquet:"kind,snappy,dict"`
	Task          string     `parquet:"task,snappy,dict"`
	Schedule      string     `parquet:"schedule,snappy,dict"`
	BackupID      string     `parquet:"backup_id,snappy"`
	EventTime     time.Time  `parquet:"event_time,snappy"`
	ReferenceTime *time.Time `parquet:"reference_time,optional,snappy"`
}

// writeParquet writes rows to a new Parquet file whose schema is inferred from T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// WriteRunsParquet writes a slice of Run structs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteAlertsParquet writes a slice of Alert structs to a Parquet file.
func WriteAlertsParquet(data []Alert, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:         record.RunID,
			Analysis:      string(record.Analysis),
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			AlertCount:    record.AlertCount,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertAlertRecords converts schema.AlertRecord to Alert for Parquet export.
func ConvertAlertRecords(records []schema.AlertRecord) []Alert {
	result := make([]Alert, len(records))
	for i, record := range records {
		result[i] = Alert{
			AlertUID:      record.AlertUID,
			RunID:         record.RunID,
			Kind:          string(record.Kind),
			Task:          record.Task,
			Schedule:      record.Schedule,
			BackupID:      record.BackupID,
			EventTime:     record.EventTime,
			ReferenceTime: record.ReferenceTime,
		}
	}
	return result
}
