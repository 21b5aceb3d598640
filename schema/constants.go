package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for metadata and history storage.
	DatabaseBackend string

	// BackupKind is the fdi_type of a backup result (full, incremental, differential, copy).
	BackupKind string

	// ScheduleBase is the unit a schedule's count multiplies.
	ScheduleBase string

	// AlertKind names an alert type the way the alerting backend does.
	AlertKind string

	// AnalysisName identifies which analysis produced a run.
	AnalysisName string
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Backup kinds as stored in the fdi_type column.
const (
	FullBackup         BackupKind = "F"
	IncrementalBackup  BackupKind = "I"
	DifferentialBackup BackupKind = "D"
	CopyBackup         BackupKind = "C"
)

// Schedule bases as stored in the p_base column.
const (
	MinuteBase ScheduleBase = "MIN"
	HourBase   ScheduleBase = "HOU"
	DayBase    ScheduleBase = "DAY"
	WeekBase   ScheduleBase = "WEE"
	MonthBase  ScheduleBase = "MON"
)

// Alert kinds known to the alerting backend.
const (
	CreationDateKind     AlertKind = "CREATION_DATE_ALERT"
	MissingBackupKind    AlertKind = "MISSING_BACKUP_ALERT"
	AdditionalBackupKind AlertKind = "ADDITIONAL_BACKUP_ALERT"
	SizeKind             AlertKind = "SIZE_ALERT"
	StorageFillKind      AlertKind = "STORAGE_FILL_ALERT"
)

// Analyses that can be run and tracked.
const (
	ScheduleAnalysis AnalysisName = "schedule"
	SizeAnalysis     AnalysisName = "size"
	StorageAnalysis  AnalysisName = "storage"
	SyncAnalysis     AnalysisName = "sync"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// AllBackupKinds lists the backup kinds in the order thresholds are configured.
var AllBackupKinds = []BackupKind{FullBackup, IncrementalBackup, DifferentialBackup, CopyBackup}

// ScheduleAlertKinds are the alert kinds produced by schedule analysis.
var ScheduleAlertKinds = []AlertKind{CreationDateKind, MissingBackupKind, AdditionalBackupKind}
