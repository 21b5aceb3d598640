package algo

import (
	"testing"
	"time"

	"github.com/huangsam/backupwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, task, sched string, start time.Time) schema.BackupRecord {
	return schema.BackupRecord{
		ID:          id,
		Task:        task,
		Kind:        schema.FullBackup,
		IsBackup:    true,
		SubtaskFlag: schema.NotSubtask,
		Schedule:    sched,
		Start:       start,
	}
}

func TestParticipates(t *testing.T) {
	base := record("1", "task", "hourly", utc(2024, time.March, 1, 0, 0, 0))
	tests := []struct {
		name     string
		mutate   func(r *schema.BackupRecord)
		expected bool
	}{
		{"valid", func(*schema.BackupRecord) {}, true},
		{"not a backup", func(r *schema.BackupRecord) { r.IsBackup = false }, false},
		{"subtask", func(r *schema.BackupRecord) { r.SubtaskFlag = "1" }, false},
		{"no task", func(r *schema.BackupRecord) { r.Task = "" }, false},
		{"no kind", func(r *schema.BackupRecord) { r.Kind = "" }, false},
		{"no start", func(r *schema.BackupRecord) { r.Start = time.Time{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			assert.Equal(t, tt.expected, Participates(r))
		})
	}
}

func TestGroupByTask(t *testing.T) {
	at := utc(2024, time.March, 1, 0, 0, 0)
	sub := record("4", "a", "hourly", at)
	sub.SubtaskFlag = "2"

	records := []schema.BackupRecord{
		record("1", "a", "hourly", at),
		record("2", "b", "daily", at),
		record("3", "a", "daily", at),
		sub,
		record("5", "a", "hourly", at.Add(time.Hour)),
	}
	groups := GroupByTask(records)

	require.Len(t, groups, 2)
	require.Len(t, groups["a"]["hourly"], 2)
	assert.Equal(t, "1", groups["a"]["hourly"][0].ID)
	assert.Equal(t, "5", groups["a"]["hourly"][1].ID)
	assert.Len(t, groups["a"]["daily"], 1)
	assert.Len(t, groups["b"]["daily"], 1)
}

func TestUsedSchedules(t *testing.T) {
	events := []schema.TaskEvent{
		{ID: "1", Task: "a", Schedule: "hourly"},
		{ID: "2", Task: "a", Schedule: "daily"},
		{ID: "3", Task: "a", Schedule: "hourly"},
		{ID: "4", Task: "b", Schedule: "weekly"},
		{ID: "5", Task: "", Schedule: "weekly"},
		{ID: "6", Task: "c", Schedule: ""},
	}
	used := UsedSchedules(events)

	assert.Equal(t, map[string][]string{
		"a": {"hourly", "daily"},
		"b": {"weekly"},
	}, used)
}

func TestPairs(t *testing.T) {
	at := utc(2024, time.March, 1, 0, 0, 0)
	groups := GroupByTask([]schema.BackupRecord{
		record("1", "b", "hourly", at),
		record("2", "a", "daily", at),
		record("3", "c", "daily", at),
	})
	used := map[string][]string{
		"a": {"daily", "hourly"},
		"b": {"hourly"},
	}

	pairs := Pairs(groups, used)
	require.Len(t, pairs, 3)
	assert.Equal(t, "a", pairs[0].Task)
	assert.Equal(t, "daily", pairs[0].Schedule)
	assert.Len(t, pairs[0].Records, 1)
	assert.Equal(t, "hourly", pairs[1].Schedule)
	assert.Empty(t, pairs[1].Records)
	assert.Equal(t, "b", pairs[2].Task)
}
