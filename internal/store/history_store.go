package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
	"github.com/jmoiron/sqlx"
)

// Table names for run history.
const (
	runsTable   = "backupwatch_runs"
	alertsTable = "backupwatch_alerts"
)

// HistoryTables lists the history tables in creation order.
var HistoryTables = []string{runsTable, alertsTable}

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sqlx.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend || backend == "" {
		// Return a no-op store for disabled tracking
		return &HistoryStoreImpl{backend: schema.NoneBackend}, nil
	}

	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}
	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables creates the run history tables.
func createHistoryTables(db *sqlx.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{runsTable, getCreateRunsQuery(backend)},
		{alertsTable, getCreateAlertsQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateRunsQuery returns the CREATE TABLE query for backupwatch_runs.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(runsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				analysis VARCHAR(32) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms BIGINT,
				alert_count INT,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				analysis TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms BIGINT,
				alert_count INT,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				analysis TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				alert_count INTEGER,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreateAlertsQuery returns the CREATE TABLE query for backupwatch_alerts.
func getCreateAlertsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(alertsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				alert_uid CHAR(36) PRIMARY KEY,
				run_id BIGINT NOT NULL,
				kind VARCHAR(32) NOT NULL,
				task VARCHAR(255) NOT NULL,
				schedule VARCHAR(255) NOT NULL,
				backup_id VARCHAR(64) NOT NULL,
				event_time DATETIME(6) NOT NULL,
				reference_time DATETIME(6),
				INDEX idx_kind_event (kind, event_time)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				alert_uid UUID PRIMARY KEY,
				run_id BIGINT NOT NULL,
				kind TEXT NOT NULL,
				task TEXT NOT NULL,
				schedule TEXT NOT NULL,
				backup_id TEXT NOT NULL,
				event_time TIMESTAMPTZ NOT NULL,
				reference_time TIMESTAMPTZ
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				alert_uid TEXT PRIMARY KEY,
				run_id INTEGER NOT NULL,
				kind TEXT NOT NULL,
				task TEXT NOT NULL,
				schedule TEXT NOT NULL,
				backup_id TEXT NOT NULL,
				event_time TEXT NOT NULL,
				reference_time TEXT
			);
		`, quotedTableName)
	}
}

func (hs *HistoryStoreImpl) disabled() bool {
	return hs.backend == schema.NoneBackend || hs.db == nil
}

// BeginRun creates a new run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(analysis schema.AnalysisName, startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(runsTable, hs.backend)
	args := []any{string(analysis), formatTime(startTime, hs.backend), string(configJSON)}

	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (analysis, start_time, config_params) VALUES ($1, $2, $3) RETURNING run_id`, quotedTableName)
		err = hs.db.QueryRowx(query, args...).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (analysis, start_time, config_params) VALUES (?, ?, ?)`, quotedTableName)
		res, execErr := hs.db.Exec(query, args...)
		if execErr != nil {
			return 0, fmt.Errorf("failed to insert run: %w", execErr)
		}
		runID, err = res.LastInsertId()
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, alertCount int) error {
	if hs.disabled() {
		return nil
	}

	quotedTableName := quoteTableName(runsTable, hs.backend)

	var startTime nullTime
	query := hs.db.Rebind(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, quotedTableName))
	if err := hs.db.QueryRowx(query, runID).Scan(&startTime); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}

	durationMs := endTime.Sub(startTime.Time).Milliseconds()
	update := hs.db.Rebind(fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, alert_count = ? WHERE run_id = ?`, quotedTableName))
	if _, err := hs.db.Exec(update, formatTime(endTime, hs.backend), durationMs, alertCount, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// RecordAlerts stores the alerts of a run in one transaction.
func (hs *HistoryStoreImpl) RecordAlerts(runID int64, rows []schema.AlertRow) error {
	if hs.disabled() || len(rows) == 0 {
		return nil
	}

	query := hs.db.Rebind(fmt.Sprintf(`
		INSERT INTO %s (alert_uid, run_id, kind, task, schedule, backup_id, event_time, reference_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, quoteTableName(alertsTable, hs.backend)))

	tx, err := hs.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, row := range rows {
		var ref any
		if row.ReferenceTime != nil {
			ref = formatTime(*row.ReferenceTime, hs.backend)
		}
		if _, err := tx.Exec(query,
			uuid.NewString(), runID, string(row.Kind), row.Task, row.Schedule, row.BackupID,
			formatTime(row.EventTime, hs.backend), ref,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert alert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alerts: %w", err)
	}
	return nil
}

// LatestEventTime returns the newest recorded event time among the given kinds.
func (hs *HistoryStoreImpl) LatestEventTime(kinds []schema.AlertKind) (time.Time, error) {
	if hs.disabled() || len(kinds) == 0 {
		return time.Time{}, nil
	}

	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT MAX(event_time) FROM %s WHERE kind IN (?)`, quoteTableName(alertsTable, hs.backend)), names)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to build watermark query: %w", err)
	}

	var latest nullTime
	if err := hs.db.QueryRowx(hs.db.Rebind(query), args...).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest event time: %w", err)
	}
	return latest.Time, nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.disabled() {
		return status, nil
	}

	quotedRuns := quoteTableName(runsTable, hs.backend)
	if err := hs.db.Get(&status.TotalRuns, fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedRuns)); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var lastRunTime nullTime
		row := hs.db.QueryRowx(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", quotedRuns))
		if err := row.Scan(&status.LastRunID, &lastRunTime); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		status.LastRunTime = lastRunTime.Time

		var oldestRunTime nullTime
		row = hs.db.QueryRowx(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", quotedRuns))
		if err := row.Scan(&oldestRunTime); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.OldestRunTime = oldestRunTime.Time
	}

	for _, table := range HistoryTables {
		var count int64
		if err := hs.db.Get(&count, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend))); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalAlerts = status.TableSizes[alertsTable]

	return status, nil
}

type runRow struct {
	RunID         int64      `db:"run_id"`
	Analysis      flexString `db:"analysis"`
	StartTime     nullTime   `db:"start_time"`
	EndTime       nullTime   `db:"end_time"`
	RunDurationMs nullInt    `db:"run_duration_ms"`
	AlertCount    nullInt    `db:"alert_count"`
	ConfigParams  *string    `db:"config_params"`
}

// GetAllRuns retrieves all runs from the store.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	var rows []runRow
	query := fmt.Sprintf("SELECT run_id, analysis, start_time, end_time, run_duration_ms, alert_count, config_params FROM %s ORDER BY run_id", quoteTableName(runsTable, hs.backend))
	if err := hs.db.Select(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	results := make([]schema.RunRecord, 0, len(rows))
	for _, r := range rows {
		record := schema.RunRecord{
			RunID:         r.RunID,
			Analysis:      schema.AnalysisName(r.Analysis),
			StartTime:     r.StartTime.Time,
			RunDurationMs: r.RunDurationMs.Ptr(),
			AlertCount:    r.AlertCount.Ptr(),
			ConfigParams:  r.ConfigParams,
		}
		if r.EndTime.Valid {
			end := r.EndTime.Time
			record.EndTime = &end
		}
		results = append(results, record)
	}
	return results, nil
}

type alertRow struct {
	AlertUID      flexString `db:"alert_uid"`
	RunID         int64      `db:"run_id"`
	Kind          flexString `db:"kind"`
	Task          flexString `db:"task"`
	Schedule      flexString `db:"schedule"`
	BackupID      flexString `db:"backup_id"`
	EventTime     nullTime   `db:"event_time"`
	ReferenceTime nullTime   `db:"reference_time"`
}

// GetAllAlerts retrieves all recorded alerts ordered by run and event time.
func (hs *HistoryStoreImpl) GetAllAlerts() ([]schema.AlertRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	var rows []alertRow
	query := fmt.Sprintf(`SELECT alert_uid, run_id, kind, task, schedule, backup_id, event_time, reference_time
		FROM %s ORDER BY run_id, event_time`, quoteTableName(alertsTable, hs.backend))
	if err := hs.db.Select(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}

	results := make([]schema.AlertRecord, 0, len(rows))
	for _, r := range rows {
		record := schema.AlertRecord{
			AlertUID:  string(r.AlertUID),
			RunID:     r.RunID,
			Kind:      schema.AlertKind(r.Kind),
			Task:      string(r.Task),
			Schedule:  string(r.Schedule),
			BackupID:  string(r.BackupID),
			EventTime: r.EventTime.Time,
		}
		if r.ReferenceTime.Valid {
			ref := r.ReferenceTime.Time
			record.ReferenceTime = &ref
		}
		results = append(results, record)
	}
	return results, nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}
