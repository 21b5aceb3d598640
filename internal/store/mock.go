package store

import (
	"context"
	"time"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
	"github.com/stretchr/testify/mock"
)

// MockMetadataSource is a mock implementation of MetadataSource for testing.
type MockMetadataSource struct {
	mock.Mock
}

var _ contract.MetadataSource = &MockMetadataSource{} // Compile-time check

// ListBackupRecords implements the MetadataSource interface.
func (m *MockMetadataSource) ListBackupRecords(ctx context.Context) ([]schema.BackupRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]schema.BackupRecord)
	return records, args.Error(1)
}

// ListSchedules implements the MetadataSource interface.
func (m *MockMetadataSource) ListSchedules(ctx context.Context) ([]schema.Schedule, error) {
	args := m.Called(ctx)
	schedules, _ := args.Get(0).([]schema.Schedule)
	return schedules, args.Error(1)
}

// ListTaskEvents implements the MetadataSource interface.
func (m *MockMetadataSource) ListTaskEvents(ctx context.Context) ([]schema.TaskEvent, error) {
	args := m.Called(ctx)
	events, _ := args.Get(0).([]schema.TaskEvent)
	return events, args.Error(1)
}

// ListDataStores implements the MetadataSource interface.
func (m *MockMetadataSource) ListDataStores(ctx context.Context) ([]schema.DataStore, error) {
	args := m.Called(ctx)
	stores, _ := args.Get(0).([]schema.DataStore)
	return stores, args.Error(1)
}

// Close implements the MetadataSource interface.
func (m *MockMetadataSource) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ contract.HistoryStore = &MockHistoryStore{} // Compile-time check

// BeginRun implements the HistoryStore interface.
func (m *MockHistoryStore) BeginRun(analysis schema.AnalysisName, startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(analysis, startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the HistoryStore interface.
func (m *MockHistoryStore) EndRun(runID int64, endTime time.Time, alertCount int) error {
	return m.Called(runID, endTime, alertCount).Error(0)
}

// RecordAlerts implements the HistoryStore interface.
func (m *MockHistoryStore) RecordAlerts(runID int64, rows []schema.AlertRow) error {
	return m.Called(runID, rows).Error(0)
}

// LatestEventTime implements the HistoryStore interface.
func (m *MockHistoryStore) LatestEventTime(kinds []schema.AlertKind) (time.Time, error) {
	args := m.Called(kinds)
	return args.Get(0).(time.Time), args.Error(1)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus() (schema.HistoryStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.HistoryStatus), args.Error(1)
}

// GetAllRuns implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.RunRecord)
	return runs, args.Error(1)
}

// GetAllAlerts implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllAlerts() ([]schema.AlertRecord, error) {
	args := m.Called()
	alerts, _ := args.Get(0).([]schema.AlertRecord)
	return alerts, args.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	return m.Called().Error(0)
}
