package schema

import "time"

// HistoryStatus holds status information about the run history store.
type HistoryStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int64            `json:"total_runs"`
	LastRunID     int64            `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TotalAlerts   int64            `json:"total_alerts"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}

// RunRecord represents a single row of the runs table.
type RunRecord struct {
	RunID         int64        `json:"run_id"`
	Analysis      AnalysisName `json:"analysis"`
	StartTime     time.Time    `json:"start_time"`
	EndTime       *time.Time   `json:"end_time,omitempty"`
	RunDurationMs *int64       `json:"run_duration_ms,omitempty"`
	AlertCount    *int64       `json:"alert_count,omitempty"`
	ConfigParams  *string      `json:"config_params,omitempty"`
}

// AlertRecord represents a single row of the alerts table.
type AlertRecord struct {
	AlertUID      string     `json:"alert_uid"`
	RunID         int64      `json:"run_id"`
	Kind          AlertKind  `json:"kind"`
	Task          string     `json:"task"`
	Schedule      string     `json:"schedule"`
	BackupID      string     `json:"backup_id"`
	EventTime     time.Time  `json:"event_time"`
	ReferenceTime *time.Time `json:"reference_time,omitempty"`
}

// AnalysisResult is what every analysis returns to its caller.
type AnalysisResult struct {
	Analysis AnalysisName      `json:"analysis"`
	Count    int               `json:"count"`
	Alerts   []AlertRow        `json:"alerts"`
	Skipped  []string          `json:"skipped,omitempty"`
	Start    time.Time         `json:"start"`
	Stop     time.Time         `json:"stop"`
	ByKind   map[AlertKind]int `json:"by_kind"`
}
