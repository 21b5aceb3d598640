// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"errors"
	"time"

	"github.com/huangsam/backupwatch/schema"
)

// ErrNoWatermark is returned when the alerting backend keeps no watermark for an alert kind.
var ErrNoWatermark = errors.New("no watermark for alert kind")

// MetadataSource reads the backup metadata tables.
// This allows the analyzers to be tested without a database.
type MetadataSource interface {
	// ListBackupRecords returns every row of the results table.
	ListBackupRecords(ctx context.Context) ([]schema.BackupRecord, error)

	// ListSchedules returns every schedule definition.
	ListSchedules(ctx context.Context) ([]schema.Schedule, error)

	// ListTaskEvents returns the task to schedule associations.
	ListTaskEvents(ctx context.Context) ([]schema.TaskEvent, error)

	// ListDataStores returns the storage pools and their fill levels.
	ListDataStores(ctx context.Context) ([]schema.DataStore, error)

	// Close closes the underlying connection
	Close() error
}

// AlertSink delivers alerts and backup data to the alerting backend.
type AlertSink interface {
	// --- Schedule alerts ---

	// SubmitCreationDateAlerts sends all creation-date alerts in a single call.
	SubmitCreationDateAlerts(ctx context.Context, alerts []schema.CreationDateAlert) error

	// SubmitMissingBackupAlert sends one missing-backup alert.
	SubmitMissingBackupAlert(ctx context.Context, alert schema.MissingBackupAlert) error

	// SubmitAdditionalBackupAlert sends one additional-backup alert.
	SubmitAdditionalBackupAlert(ctx context.Context, alert schema.AdditionalBackupAlert) error

	// --- Other analyses ---

	SubmitSizeAlerts(ctx context.Context, alerts []schema.SizeAlert) error
	SubmitStorageFillAlerts(ctx context.Context, alerts []schema.StorageFillAlert) error
	SendBackupDataBatched(ctx context.Context, batch []schema.BackupData) error
}

// WatermarkSource reports what the alerting backend has already seen.
type WatermarkSource interface {
	// LatestAlertBackupID returns the backup id of the newest alert of a kind.
	// An empty id means no alert of that kind exists yet. Kinds without a
	// watermark yield ErrNoWatermark.
	LatestAlertBackupID(ctx context.Context, kind schema.AlertKind) (string, error)

	// LatestBackupDate returns the creation date of the newest synced backup.
	// The zero time means nothing was synced yet.
	LatestBackupDate(ctx context.Context) (time.Time, error)
}

// HistoryStore defines the interface for tracking analysis runs and their alerts.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(analysis schema.AnalysisName, startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, alertCount int) error

	// RecordAlerts stores the alerts produced by a run
	RecordAlerts(runID int64, rows []schema.AlertRow) error

	// LatestEventTime returns the newest recorded event time among the given kinds.
	// The zero time means nothing was recorded.
	LatestEventTime(kinds []schema.AlertKind) (time.Time, error)

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every recorded run
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllAlerts returns every recorded alert
	GetAllAlerts() ([]schema.AlertRecord, error)

	// Close closes the underlying connection
	Close() error
}
