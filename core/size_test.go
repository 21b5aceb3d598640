package core

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/huangsam/backupwatch/internal/backend"
	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/internal/store"
	"github.com/huangsam/backupwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sized(id, task string, kind schema.BackupKind, start time.Time, size int64) schema.BackupRecord {
	r := mkRecord(id, task, "", start)
	r.Kind = kind
	r.Saveset = "ss-" + id
	r.DataSize = &size
	return r
}

var defaultThresholds = map[schema.BackupKind]float64{
	schema.FullBackup:         0.2,
	schema.IncrementalBackup:  0.5,
	schema.DifferentialBackup: 0.2,
	schema.CopyBackup:         0.2,
}

func TestRelativeChange(t *testing.T) {
	tests := []struct {
		a, b     int64
		expected float64
	}{
		{100, 120, 0.2},
		{100, 50, 0.5},
		{0, 0, 0},
		{0, 5, math.Inf(1)},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.expected, relativeChange(tt.a, tt.b), 1e-9, "%d -> %d", tt.a, tt.b)
	}
}

func TestSizeAlerts(t *testing.T) {
	records := []schema.BackupRecord{
		// unordered on purpose
		sized("f3", "db", schema.FullBackup, at(3, 0, 0), 131_000_000),
		sized("f1", "db", schema.FullBackup, at(1, 0, 0), 100_000_000),
		sized("f2", "db", schema.FullBackup, at(2, 0, 0), 130_000_000), // +30%
		sized("i1", "db", schema.IncrementalBackup, at(1, 30, 0), 10_000_000),
		sized("i2", "db", schema.IncrementalBackup, at(2, 30, 0), 14_000_000), // +40%, below 0.5
		sized("z1", "web", schema.FullBackup, at(1, 0, 0), 0),
		sized("z2", "web", schema.FullBackup, at(2, 0, 0), 1), // from zero
		mkRecord("nosize", "web", "", at(4, 0, 0)),
	}

	alerts := sizeAlerts(records, defaultThresholds, time.Time{})
	require.Len(t, alerts, 2)

	assert.Equal(t, "f2", alerts[0].BackupID)
	assert.Equal(t, "ss-f2", alerts[0].Saveset)
	assert.InDelta(t, 130.0, alerts[0].Size, 1e-9)
	assert.InDelta(t, 100.0, alerts[0].ReferenceSize, 1e-9)
	assert.Equal(t, "z2", alerts[1].BackupID)

	assert.Equal(t, 100_000_000, int(*records[1].DataSize), "input is not mutated")
	assert.Equal(t, "f3", records[0].ID, "input order is kept")
}

func TestSizeAlerts_StartBound(t *testing.T) {
	records := []schema.BackupRecord{
		sized("f1", "db", schema.FullBackup, at(1, 0, 0), 100),
		sized("f2", "db", schema.FullBackup, at(2, 0, 0), 200),
		sized("f3", "db", schema.FullBackup, at(3, 0, 0), 400),
	}
	alerts := sizeAlerts(records, defaultThresholds, at(2, 0, 0))
	require.Len(t, alerts, 1)
	assert.Equal(t, "f3", alerts[0].BackupID)
}

func TestAnalyzeSizes(t *testing.T) {
	records := []schema.BackupRecord{
		sized("a1", "a", schema.FullBackup, at(1, 0, 0), 100),
		sized("a2", "a", schema.FullBackup, at(5, 0, 0), 200),
		sized("b1", "b", schema.FullBackup, at(2, 0, 0), 100),
		sized("b2", "b", schema.FullBackup, at(3, 0, 0), 10),
	}

	sink := &backend.MockAlertSink{}
	sink.On("SubmitSizeAlerts", mock.Anything, mock.MatchedBy(func(alerts []schema.SizeAlert) bool {
		return len(alerts) == 1 && alerts[0].BackupID == "b2"
	})).Return(nil).Once()

	result, err := AnalyzeSizes(context.Background(), &Env{Sink: sink}, SizeInput{
		Records:    records,
		Thresholds: defaultThresholds,
		AlertLimit: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, schema.SizeKind, result.Alerts[0].Kind)
	assert.Equal(t, at(3, 0, 0), result.Alerts[0].EventTime)
	sink.AssertExpectations(t)
}

func TestAnalyzeSizes_SinkErrorEndsRun(t *testing.T) {
	records := []schema.BackupRecord{
		sized("b1", "b", schema.FullBackup, at(2, 0, 0), 100),
		sized("b2", "b", schema.FullBackup, at(3, 0, 0), 10),
	}
	sink := &backend.MockAlertSink{}
	sink.On("SubmitSizeAlerts", mock.Anything, mock.Anything).Return(errors.New("backend down"))

	hist := &store.MockHistoryStore{}
	hist.On("BeginRun", schema.SizeAnalysis, mock.AnythingOfType("time.Time"), mock.Anything).Return(int64(4), nil)
	hist.On("EndRun", int64(4), mock.AnythingOfType("time.Time"), 0).Return(nil).Once()

	_, err := AnalyzeSizes(context.Background(), &Env{Sink: sink, History: hist}, SizeInput{
		Records:    records,
		Thresholds: defaultThresholds,
		AlertLimit: -1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
	hist.AssertExpectations(t)
	hist.AssertNotCalled(t, "RecordAlerts", mock.Anything, mock.Anything)
}

func TestAnalyzeSizes_NothingToSend(t *testing.T) {
	sink := &backend.MockAlertSink{}
	result, err := AnalyzeSizes(context.Background(), &Env{Sink: sink}, SizeInput{AlertLimit: -1})
	require.NoError(t, err)
	assert.Zero(t, result.Count)
	sink.AssertNotCalled(t, "SubmitSizeAlerts", mock.Anything, mock.Anything)
}

func TestRunSizeAnalysis(t *testing.T) {
	records := []schema.BackupRecord{
		sized("a1", "a", schema.FullBackup, at(1, 0, 0), 100),
		sized("a2", "a", schema.FullBackup, at(2, 0, 0), 200),
		sized("a3", "a", schema.FullBackup, at(3, 0, 0), 400),
	}
	src := &store.MockMetadataSource{}
	src.On("ListBackupRecords", mock.Anything).Return(records, nil)
	wm := &backend.MockWatermarkSource{}
	wm.On("LatestAlertBackupID", mock.Anything, schema.SizeKind).Return("a2", nil)

	sink := &backend.NopSink{}
	cfg := &contract.Config{AlertLimit: -1, SizeThresholds: defaultThresholds}
	result, err := RunSizeAnalysis(context.Background(), &Env{Metadata: src, Sink: sink, Watermark: wm}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, "a3", result.Alerts[0].BackupID)
	assert.Equal(t, int64(1), sink.Alerts())
}

func TestRunSizeAnalysis_LoadFailure(t *testing.T) {
	src := &store.MockMetadataSource{}
	src.On("ListBackupRecords", mock.Anything).Return(nil, errors.New("timeout"))

	_, err := RunSizeAnalysis(context.Background(), &Env{Metadata: src, Sink: &backend.NopSink{}}, &contract.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load backup records")
}
