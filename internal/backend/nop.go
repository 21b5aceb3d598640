package backend

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
)

// NopSink accepts everything and sends nothing. It backs --dry-run.
// It reports no watermarks, so a dry run starts from --start or the local history.
type NopSink struct {
	calls  atomic.Int64
	alerts atomic.Int64
	data   atomic.Int64
}

var (
	_ contract.AlertSink       = &NopSink{} // Compile-time check
	_ contract.WatermarkSource = &NopSink{} // Compile-time check
)

// Calls is the number of requests that would have been made.
func (n *NopSink) Calls() int64 { return n.calls.Load() }

// Alerts is the number of alerts that would have been sent.
func (n *NopSink) Alerts() int64 { return n.alerts.Load() }

// BackupData is the number of backup data records that would have been sent.
func (n *NopSink) BackupData() int64 { return n.data.Load() }

func (n *NopSink) record(alerts int) error {
	n.calls.Add(1)
	n.alerts.Add(int64(alerts))
	return nil
}

// SubmitCreationDateAlerts implements contract.AlertSink.
func (n *NopSink) SubmitCreationDateAlerts(_ context.Context, alerts []schema.CreationDateAlert) error {
	return n.record(len(alerts))
}

// SubmitMissingBackupAlert implements contract.AlertSink.
func (n *NopSink) SubmitMissingBackupAlert(context.Context, schema.MissingBackupAlert) error {
	return n.record(1)
}

// SubmitAdditionalBackupAlert implements contract.AlertSink.
func (n *NopSink) SubmitAdditionalBackupAlert(context.Context, schema.AdditionalBackupAlert) error {
	return n.record(1)
}

// SubmitSizeAlerts implements contract.AlertSink.
func (n *NopSink) SubmitSizeAlerts(_ context.Context, alerts []schema.SizeAlert) error {
	return n.record(len(alerts))
}

// SubmitStorageFillAlerts implements contract.AlertSink.
func (n *NopSink) SubmitStorageFillAlerts(_ context.Context, alerts []schema.StorageFillAlert) error {
	return n.record(len(alerts))
}

// SendBackupDataBatched implements contract.AlertSink.
func (n *NopSink) SendBackupDataBatched(_ context.Context, batch []schema.BackupData) error {
	n.calls.Add(1)
	n.data.Add(int64(len(batch)))
	return nil
}

// LatestAlertBackupID implements contract.WatermarkSource.
func (n *NopSink) LatestAlertBackupID(context.Context, schema.AlertKind) (string, error) {
	return "", nil
}

// LatestBackupDate implements contract.WatermarkSource.
func (n *NopSink) LatestBackupDate(context.Context) (time.Time, error) {
	return time.Time{}, nil
}
