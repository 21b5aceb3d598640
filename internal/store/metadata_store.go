package store

import (
	"context"
	"fmt"

	"github.com/huangsam/backupwatch/internal/contract"
	"github.com/huangsam/backupwatch/schema"
	"github.com/jmoiron/sqlx"
)

// MetadataStore reads the backup metadata tables of a sqlite, mysql or postgres database.
type MetadataStore struct {
	db      *sqlx.DB
	backend schema.DatabaseBackend
}

var _ contract.MetadataSource = &MetadataStore{}

// NewMetadataStore opens the metadata database.
func NewMetadataStore(backend schema.DatabaseBackend, connStr string) (*MetadataStore, error) {
	if backend == schema.NoneBackend || backend == "" {
		return nil, fmt.Errorf("metadata backend %q cannot be used for reading backups", backend)
	}
	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}
	return &MetadataStore{db: db, backend: backend}, nil
}

type resultRow struct {
	UUID        flexString `db:"uuid"`
	Saveset     flexString `db:"saveset"`
	Task        flexString `db:"task"`
	TaskUUID    flexString `db:"task_uuid"`
	FDIType     flexString `db:"fdi_type"`
	IsBackup    flexBool   `db:"is_backup"`
	SubtaskFlag flexString `db:"subtask_flag"`
	Schedule    flexString `db:"schedule"`
	StartTime   nullTime   `db:"start_time"`
	DataSize    nullInt    `db:"data_size"`
}

type scheduleRow struct {
	Name      flexString `db:"name"`
	Base      flexString `db:"p_base"`
	Count     nullInt    `db:"p_count"`
	StartTime clock      `db:"start_time"`
	Mo        flexBool   `db:"mo"`
	Tu        flexBool   `db:"tu"`
	We        flexBool   `db:"we"`
	Th        flexBool   `db:"th"`
	Fr        flexBool   `db:"fr"`
	Sa        flexBool   `db:"sa"`
	Su        flexBool   `db:"su"`
}

type taskEventRow struct {
	ID       flexString `db:"id"`
	Name     flexString `db:"name"`
	Object   flexString `db:"object"`
	Schedule flexString `db:"schedule"`
}

type dataStoreRow struct {
	Name          flexString `db:"name"`
	UUID          flexString `db:"uuid"`
	Capacity      nullFloat  `db:"capacity"`
	HighWaterMark nullFloat  `db:"high_water_mark"`
	Filled        nullFloat  `db:"filled"`
	Stored        nullFloat  `db:"stored"`
}

// ListBackupRecords implements contract.MetadataSource.
func (s *MetadataStore) ListBackupRecords(ctx context.Context) ([]schema.BackupRecord, error) {
	var rows []resultRow
	query := `SELECT uuid, saveset, task, task_uuid, fdi_type, is_backup, subtask_flag, schedule, start_time, data_size FROM results`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query results from %s: %w", s.backend, err)
	}
	records := make([]schema.BackupRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, schema.BackupRecord{
			ID:          string(r.UUID),
			Saveset:     string(r.Saveset),
			Task:        string(r.Task),
			TaskUUID:    string(r.TaskUUID),
			Kind:        schema.BackupKind(r.FDIType),
			IsBackup:    bool(r.IsBackup),
			SubtaskFlag: string(r.SubtaskFlag),
			Schedule:    string(r.Schedule),
			Start:       r.StartTime.Time,
			DataSize:    r.DataSize.Ptr(),
		})
	}
	return records, nil
}

// ListSchedules implements contract.MetadataSource.
func (s *MetadataStore) ListSchedules(ctx context.Context) ([]schema.Schedule, error) {
	var rows []scheduleRow
	query := `SELECT name, p_base, p_count, start_time, mo, tu, we, th, fr, sa, su FROM schedules`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query schedules from %s: %w", s.backend, err)
	}
	schedules := make([]schema.Schedule, 0, len(rows))
	for _, r := range rows {
		schedules = append(schedules, schema.Schedule{
			Name:   string(r.Name),
			Base:   schema.ParseScheduleBase(string(r.Base)),
			Count:  int(r.Count.Int),
			Anchor: string(r.StartTime),
			Weekdays: [7]bool{
				bool(r.Mo), bool(r.Tu), bool(r.We), bool(r.Th),
				bool(r.Fr), bool(r.Sa), bool(r.Su),
			},
		})
	}
	return schedules, nil
}

// ListTaskEvents implements contract.MetadataSource.
func (s *MetadataStore) ListTaskEvents(ctx context.Context) ([]schema.TaskEvent, error) {
	var rows []taskEventRow
	query := `SELECT id, name, object, schedule FROM task_events`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query task events from %s: %w", s.backend, err)
	}
	events := make([]schema.TaskEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, schema.TaskEvent{
			ID:       string(r.ID),
			Name:     string(r.Name),
			Task:     string(r.Object),
			Schedule: string(r.Schedule),
		})
	}
	return events, nil
}

// ListDataStores implements contract.MetadataSource.
func (s *MetadataStore) ListDataStores(ctx context.Context) ([]schema.DataStore, error) {
	var rows []dataStoreRow
	query := `SELECT name, uuid, capacity, high_water_mark, filled, stored FROM data_stores`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query data stores from %s: %w", s.backend, err)
	}
	stores := make([]schema.DataStore, 0, len(rows))
	for _, r := range rows {
		stores = append(stores, schema.DataStore{
			Name:          string(r.Name),
			UUID:          string(r.UUID),
			Capacity:      r.Capacity.Ptr(),
			HighWaterMark: r.HighWaterMark.Ptr(),
			Filled:        r.Filled.Ptr(),
			Stored:        r.Stored.Ptr(),
		})
	}
	return stores, nil
}

// Close implements contract.MetadataSource.
func (s *MetadataStore) Close() error {
	return s.db.Close()
}
