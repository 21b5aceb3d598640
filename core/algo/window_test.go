package algo

import (
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/backupwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourly(t *testing.T, count int) *Recurrence {
	t.Helper()
	r, err := NewRecurrence(schema.Schedule{Name: "sched", Base: schema.HourBase, Count: count})
	require.NoError(t, err)
	return r
}

// day builds records on 2024-03-01 at the given clock times.
func day(clock ...string) []schema.BackupRecord {
	records := make([]schema.BackupRecord, 0, len(clock))
	for i, c := range clock {
		ts, err := time.Parse("15:04:05", c)
		if err != nil {
			panic(err)
		}
		at := utc(2024, time.March, 1, ts.Hour(), ts.Minute(), ts.Second())
		records = append(records, record(fmt.Sprintf("b%d", i+1), "task", "sched", at))
	}
	return records
}

func at(h, m int) time.Time { return utc(2024, time.March, 1, h, m, 0) }

func TestMatchScheduleScenarios(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		records  []schema.BackupRecord
		stop     time.Time
		expected []schema.Alert
	}{
		{
			name:    "on time",
			count:   3,
			records: day("12:00:00", "15:00:00", "18:00:00", "21:00:00"),
			stop:    at(22, 0),
		},
		{
			name:    "deviation equal to tolerance",
			count:   3,
			records: day("12:00:00", "15:18:00", "17:42:00", "21:00:00"),
			stop:    at(22, 0),
		},
		{
			name:    "deviation just beyond tolerance",
			count:   3,
			records: day("12:00:00", "15:18:01", "17:41:59", "21:00:00"),
			stop:    at(22, 0),
			expected: []schema.Alert{
				schema.CreationDateAlert{BackupID: "b2", Date: utc(2024, time.March, 1, 15, 18, 1), ReferenceDate: at(15, 0), Task: "task", Schedule: "sched"},
				schema.CreationDateAlert{BackupID: "b3", Date: utc(2024, time.March, 1, 17, 41, 59), ReferenceDate: at(18, 0), Task: "task", Schedule: "sched"},
			},
		},
		{
			name:    "additional backup",
			count:   6,
			records: day("12:00:00", "15:00:00", "18:00:00"),
			stop:    at(19, 0),
			expected: []schema.Alert{
				schema.AdditionalBackupAlert{BackupID: "b2", Date: at(15, 0), Task: "task", Schedule: "sched"},
			},
		},
		{
			name:    "missing backup",
			count:   3,
			records: day("12:00:00", "18:00:00"),
			stop:    at(20, 0),
			expected: []schema.Alert{
				schema.MissingBackupAlert{ReferenceDate: at(15, 0), Task: "task", Schedule: "sched"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := MatchSchedule(hourly(t, tt.count), "task", tt.records, time.Time{}, tt.stop)
			assert.Equal(t, tt.expected, alerts)
		})
	}
}

func TestMatchScheduleFloodGap(t *testing.T) {
	jan := utc(2024, time.January, 1, 0, 0, 0)
	sep := utc(2024, time.September, 1, 0, 0, 0)
	records := []schema.BackupRecord{
		record("jan", "task", "sched", jan),
		record("sep", "task", "sched", sep),
	}

	t.Run("gap is suppressed", func(t *testing.T) {
		alerts := MatchSchedule(hourly(t, 1), "task", records, time.Time{}, sep.Add(30*time.Minute))
		assert.Empty(t, alerts)
	})

	t.Run("stop clamped past last record", func(t *testing.T) {
		far := utc(2030, time.January, 1, 0, 0, 0)
		alerts := MatchSchedule(hourly(t, 1), "task", records, time.Time{}, far)
		require.Len(t, alerts, 1)
		assert.Equal(t, schema.MissingBackupAlert{ReferenceDate: sep.Add(time.Hour), Task: "task", Schedule: "sched"}, alerts[0])
	})
}

func TestMatchScheduleFloodThreshold(t *testing.T) {
	t.Run("ten consecutive windows are kept", func(t *testing.T) {
		records := day("00:00:00", "11:00:00")
		alerts := MatchSchedule(hourly(t, 1), "task", records, time.Time{}, at(11, 30))
		assert.Len(t, alerts, FloodThreshold)
	})

	t.Run("eleven consecutive windows are dropped", func(t *testing.T) {
		records := day("00:00:00", "12:00:00")
		alerts := MatchSchedule(hourly(t, 1), "task", records, time.Time{}, at(12, 30))
		assert.Empty(t, alerts)
	})

	t.Run("alerts after a flood are kept", func(t *testing.T) {
		records := day("00:00:00", "12:00:00", "14:00:00")
		alerts := MatchSchedule(hourly(t, 1), "task", records, time.Time{}, at(14, 30))
		require.Len(t, alerts, 1)
		assert.Equal(t, at(13, 0), alerts[0].EventTime())
	})
}

func TestMatchScheduleStartBound(t *testing.T) {
	records := day("12:00:00", "18:00:00")

	alerts := MatchSchedule(hourly(t, 3), "task", records, at(12, 0), at(20, 0))
	assert.Len(t, alerts, 1)

	// The slot at 15:00 follows 12:00, which precedes the start bound.
	alerts = MatchSchedule(hourly(t, 3), "task", records, at(13, 0), at(20, 0))
	assert.Empty(t, alerts)
}

func TestMatchScheduleEmptyAndUnsorted(t *testing.T) {
	assert.Nil(t, MatchSchedule(hourly(t, 3), "task", nil, time.Time{}, at(22, 0)))

	records := day("21:00:00", "12:00:00", "18:00:00", "15:00:00")
	original := append([]schema.BackupRecord(nil), records...)
	alerts := MatchSchedule(hourly(t, 3), "task", records, time.Time{}, at(22, 0))
	assert.Empty(t, alerts)
	assert.Equal(t, original, records)
}

func TestMatchScheduleNearestTieGoesToEarlier(t *testing.T) {
	// Both records sit 30 minutes from the 15:00 slot, beyond the 18 minute tolerance.
	records := day("12:00:00", "14:30:00", "15:30:00", "18:00:00")
	alerts := MatchSchedule(hourly(t, 3), "task", records, time.Time{}, at(19, 0))
	require.Len(t, alerts, 2)
	SortAlerts(alerts)

	cd, ok := alerts[0].(schema.CreationDateAlert)
	require.True(t, ok)
	assert.Equal(t, "b2", cd.BackupID)

	add, ok := alerts[1].(schema.AdditionalBackupAlert)
	require.True(t, ok)
	assert.Equal(t, "b3", add.BackupID)
}
