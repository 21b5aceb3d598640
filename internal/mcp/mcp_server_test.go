package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/backupwatch/internal/contract"
	mcp_internal "github.com/huangsam/backupwatch/internal/mcp"
	"github.com/huangsam/backupwatch/internal/store"
	"github.com/huangsam/backupwatch/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func at(h, m int) time.Time {
	return time.Date(2024, time.March, 1, h, m, 0, 0, time.UTC)
}

func callTool(t *testing.T, ctx context.Context, md contract.MetadataSource, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	baseCfg := &contract.Config{AlertLimit: contract.DefaultAlertLimit, Workers: 2}
	s := mcp_internal.NewMCPServer(baseCfg, md, zap.NewNop())

	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	res, err := tool.Handler(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotNil(t, res)
	return res
}

func textOf(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func scheduleMetadata() *store.MockMetadataSource {
	rec := func(id string, start time.Time) schema.BackupRecord {
		return schema.BackupRecord{
			ID: id, Task: "db", Kind: schema.FullBackup, IsBackup: true,
			SubtaskFlag: schema.NotSubtask, Schedule: "three-hourly", Start: start,
		}
	}
	md := &store.MockMetadataSource{}
	md.On("ListBackupRecords", mock.Anything).Return([]schema.BackupRecord{
		rec("db1", at(12, 0)),
		rec("db2", at(15, 30)),
		rec("db3", at(18, 0)),
	}, nil)
	md.On("ListSchedules", mock.Anything).Return([]schema.Schedule{
		{Name: "three-hourly", Base: schema.HourBase, Count: 3},
	}, nil)
	md.On("ListTaskEvents", mock.Anything).Return([]schema.TaskEvent{
		{ID: "e1", Task: "db", Schedule: "three-hourly"},
	}, nil)
	return md
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	ctx := context.Background()
	md := &store.MockMetadataSource{}

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		contains string
	}{
		{"analyze_schedules bad limit", "analyze_schedules", map[string]any{"limit": -5.0}, "invalid parameters"},
		{"analyze_schedules bad start", "analyze_schedules", map[string]any{"start": "yesterday-ish"}, "invalid start"},
		{"analyze_schedules bad stop", "analyze_schedules", map[string]any{"stop": "soon"}, "invalid stop"},
		{"check_sizes bad limit", "check_sizes", map[string]any{"limit": 20000.0}, "invalid parameters"},
		{"check_storage bad limit", "check_storage", map[string]any{"limit": -2.0}, "invalid parameters"},
		{"next_slots unsupported base", "next_slots", map[string]any{"base": "CAL", "count": 1.0}, "invalid schedule"},
		{"next_slots zero count", "next_slots", map[string]any{"base": "HOU", "count": 0.0}, "invalid schedule"},
		{"next_slots bad weekday", "next_slots", map[string]any{"base": "DAY", "count": 1.0, "weekdays": "mo,xx"}, "invalid weekdays"},
		{"next_slots bad n", "next_slots", map[string]any{"base": "HOU", "count": 1.0, "n": 0.0}, "n must be between"},
		{"next_slots bad from", "next_slots", map[string]any{"base": "HOU", "count": 1.0, "from": "later"}, "invalid from"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, ctx, md, tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, textOf(res), tt.contains)
		})
	}
	md.AssertNotCalled(t, "ListBackupRecords", mock.Anything)
}

func TestMCPServer_AnalyzeSchedules(t *testing.T) {
	md := scheduleMetadata()
	res := callTool(t, context.Background(), md, "analyze_schedules", map[string]any{
		"limit": -1.0,
		"start": "2024-03-01T00:00:00Z",
		"stop":  "2024-03-01T20:00:00Z",
	})
	require.False(t, res.IsError, textOf(res))

	var result schema.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(textOf(res)), &result))
	assert.Equal(t, schema.ScheduleAnalysis, result.Analysis)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, schema.CreationDateKind, result.Alerts[0].Kind)
	assert.Equal(t, "db2", result.Alerts[0].BackupID)
	md.AssertExpectations(t)
}

func TestMCPServer_AnalyzeSchedulesLoadFailure(t *testing.T) {
	md := &store.MockMetadataSource{}
	md.On("ListBackupRecords", mock.Anything).Return(nil, errors.New("connection refused"))
	md.On("ListSchedules", mock.Anything).Return(nil, nil)
	md.On("ListTaskEvents", mock.Anything).Return(nil, nil)

	res := callTool(t, context.Background(), md, "analyze_schedules", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(res), "connection refused")
}

func TestMCPServer_NextSlots(t *testing.T) {
	res := callTool(t, context.Background(), nil, "next_slots", map[string]any{
		"base":     "DAY",
		"count":    1.0,
		"anchor":   "02:30",
		"weekdays": "mo,fr",
		"from":     "2024-03-01T12:00:00Z",
		"n":        3.0,
	})
	require.False(t, res.IsError, textOf(res))

	var resp struct {
		Slots     []time.Time `json:"slots"`
		Tolerance string      `json:"tolerance"`
		Warning   string      `json:"warning"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(res)), &resp))
	require.Len(t, resp.Slots, 3)
	assert.True(t, resp.Slots[0].Equal(time.Date(2024, time.March, 4, 2, 30, 0, 0, time.UTC)))
	assert.True(t, resp.Slots[1].Equal(time.Date(2024, time.March, 8, 2, 30, 0, 0, time.UTC)))
	assert.True(t, resp.Slots[2].Equal(time.Date(2024, time.March, 11, 2, 30, 0, 0, time.UTC)))
	assert.Equal(t, "2h24m0s", resp.Tolerance)
	assert.Empty(t, resp.Warning)
}

func TestMCPServer_NextSlotsMalformedAnchor(t *testing.T) {
	res := callTool(t, context.Background(), nil, "next_slots", map[string]any{
		"base":   "DAY",
		"count":  1.0,
		"anchor": "25:99",
		"from":   "2024-03-01T12:00:00Z",
		"n":      1.0,
	})
	require.False(t, res.IsError, textOf(res))
	assert.Contains(t, textOf(res), `"warning"`)
	assert.Contains(t, textOf(res), "2024-03-02T12:00:00Z")
}

func TestMCPServer_CheckSizes(t *testing.T) {
	size := func(n int64) *int64 { return &n }
	md := &store.MockMetadataSource{}
	md.On("ListBackupRecords", mock.Anything).Return([]schema.BackupRecord{
		{ID: "a1", Task: "db", Kind: schema.FullBackup, Start: at(1, 0), DataSize: size(100_000_000)},
		{ID: "a2", Task: "db", Kind: schema.FullBackup, Start: at(2, 0), DataSize: size(300_000_000)},
	}, nil)

	res := callTool(t, context.Background(), md, "check_sizes", map[string]any{"limit": 5.0})
	require.False(t, res.IsError, textOf(res))

	var result schema.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(textOf(res)), &result))
	assert.Equal(t, schema.SizeAnalysis, result.Analysis)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "a2", result.Alerts[0].BackupID)
}

func TestMCPServer_CheckStorage(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	md := &store.MockMetadataSource{}
	md.On("ListDataStores", mock.Anything).Return([]schema.DataStore{
		{Name: "pool-a", UUID: "u1", Capacity: f(100), HighWaterMark: f(80), Filled: f(95)},
		{Name: "pool-b", UUID: "u2", Capacity: f(100), HighWaterMark: f(80), Filled: f(10)},
	}, nil)

	res := callTool(t, context.Background(), md, "check_storage", nil)
	require.False(t, res.IsError, textOf(res))

	var result schema.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(textOf(res)), &result))
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "pool-a", result.Alerts[0].Task)
}
