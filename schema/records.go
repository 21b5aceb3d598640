package schema

import (
	"strings"
	"time"
)

// NotSubtask is the subtask_flag value of a top-level backup job.
const NotSubtask = "0"

// BackupRecord is one executed backup job instance from the results table.
type BackupRecord struct {
	ID          string     `json:"id"`
	Saveset     string     `json:"saveset"`
	Task        string     `json:"task"`
	TaskUUID    string     `json:"taskUuid,omitempty"`
	Kind        BackupKind `json:"kind"`
	IsBackup    bool       `json:"isBackup"`
	SubtaskFlag string     `json:"subtaskFlag"`
	Schedule    string     `json:"schedule,omitempty"`
	Start       time.Time  `json:"start"`              // zero when the store has no start time
	DataSize    *int64     `json:"dataSize,omitempty"` // nil when the store has no size
}

// HasStart reports whether the record carries a start instant.
func (r BackupRecord) HasStart() bool {
	return !r.Start.IsZero()
}

// Schedule is a named recurrence rule from the schedules table.
type Schedule struct {
	Name   string       `json:"name"`
	Base   ScheduleBase `json:"base"`
	Count  int          `json:"count"`
	Anchor string       `json:"anchor,omitempty"` // "HH:MM"

	// Weekdays holds the mo..su flags, Monday first.
	Weekdays [7]bool `json:"weekdays"`
}

// WeekdayEnabled reports whether backups may run on the given weekday.
func (s Schedule) WeekdayEnabled(d time.Weekday) bool {
	// time.Weekday starts at Sunday, the flags start at Monday.
	return s.Weekdays[(int(d)+6)%7]
}

// AnyWeekday reports whether at least one weekday flag is set.
func (s Schedule) AnyWeekday() bool {
	for _, on := range s.Weekdays {
		if on {
			return true
		}
	}
	return false
}

// ParseScheduleBase normalizes a stored base unit. Both the three letter codes
// and full unit names are accepted. Unknown values are returned upper-cased so
// that callers can report them.
func ParseScheduleBase(s string) ScheduleBase {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "MIN", "MINUTE", "MINUTES":
		return MinuteBase
	case "HOU", "HOUR", "HOURS":
		return HourBase
	case "DAY", "DAYS":
		return DayBase
	case "WEE", "WEEK", "WEEKS":
		return WeekBase
	case "MON", "MONTH", "MONTHS":
		return MonthBase
	default:
		return ScheduleBase(v)
	}
}

// TaskEvent links a task (the object column) to a schedule it ran under.
type TaskEvent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Task     string `json:"task"`
	Schedule string `json:"schedule"`
}

// DataStore is a storage pool with its fill level.
type DataStore struct {
	Name          string   `json:"name"`
	UUID          string   `json:"uuid"`
	Capacity      *float64 `json:"capacity,omitempty"`
	HighWaterMark *float64 `json:"highWaterMark,omitempty"`
	Filled        *float64 `json:"filled,omitempty"`
	Stored        *float64 `json:"stored,omitempty"`
}

// BackupData is the record shape pushed to the backend by the sync command.
type BackupData struct {
	ID           string    `json:"id"`
	Saveset      string    `json:"saveset"`
	SizeMB       int64     `json:"sizeMB"`
	CreationDate time.Time `json:"creationDate"`
}
