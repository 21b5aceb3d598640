package backend

import (
	"context"
	"time"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
	"github.com/stretchr/testify/mock"
)

// MockAlertSink is a mock implementation of AlertSink for testing.
type MockAlertSink struct {
	mock.Mock
}

var _ contract.AlertSink = &MockAlertSink{} // Compile-time check

// SubmitCreationDateAlerts implements the AlertSink interface.
func (m *MockAlertSink) SubmitCreationDateAlerts(ctx context.Context, alerts []schema.CreationDateAlert) error {
	return m.Called(ctx, alerts).Error(0)
}

// SubmitMissingBackupAlert implements the AlertSink interface.
func (m *MockAlertSink) SubmitMissingBackupAlert(ctx context.Context, alert schema.MissingBackupAlert) error {
	return m.Called(ctx, alert).Error(0)
}

// SubmitAdditionalBackupAlert implements the AlertSink interface.
func (m *MockAlertSink) SubmitAdditionalBackupAlert(ctx context.Context, alert schema.AdditionalBackupAlert) error {
	return m.Called(ctx, alert).Error(0)
}

// SubmitSizeAlerts implements the AlertSink interface.
func (m *MockAlertSink) SubmitSizeAlerts(ctx context.Context, alerts []schema.SizeAlert) error {
	return m.Called(ctx, alerts).Error(0)
}

// SubmitStorageFillAlerts implements the AlertSink interface.
func (m *MockAlertSink) SubmitStorageFillAlerts(ctx context.Context, alerts []schema.StorageFillAlert) error {
	return m.Called(ctx, alerts).Error(0)
}

// SendBackupDataBatched implements the AlertSink interface.
func (m *MockAlertSink) SendBackupDataBatched(ctx context.Context, batch []schema.BackupData) error {
	return m.Called(ctx, batch).Error(0)
}

// MockWatermarkSource is a mock implementation of WatermarkSource for testing.
type MockWatermarkSource struct {
	mock.Mock
}

var _ contract.WatermarkSource = &MockWatermarkSource{} // Compile-time check

// LatestAlertBackupID implements the WatermarkSource interface.
func (m *MockWatermarkSource) LatestAlertBackupID(ctx context.Context, kind schema.AlertKind) (string, error) {
	args := m.Called(ctx, kind)
	return args.String(0), args.Error(1)
}

// LatestBackupDate implements the WatermarkSource interface.
func (m *MockWatermarkSource) LatestBackupDate(ctx context.Context) (time.Time, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Error(1)
}
