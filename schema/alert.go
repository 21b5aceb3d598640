package schema

import "time"

// Alert is one of CreationDateAlert, MissingBackupAlert or AdditionalBackupAlert.
// The set is closed. Code that needs to tell the variants apart goes through Accept.
type Alert interface {
	Kind() AlertKind
	EventTime() time.Time
	Accept(v AlertVisitor)
	alert()
}

// AlertVisitor handles each schedule alert variant.
type AlertVisitor interface {
	VisitCreationDate(a CreationDateAlert)
	VisitMissingBackup(a MissingBackupAlert)
	VisitAdditionalBackup(a AdditionalBackupAlert)
}

// CreationDateAlert reports a backup near a slot but outside the tolerance.
type CreationDateAlert struct {
	BackupID      string    `json:"backupId"`
	Date          time.Time `json:"date"`
	ReferenceDate time.Time `json:"referenceDate"`
	Task          string    `json:"-"`
	Schedule      string    `json:"-"`
}

// MissingBackupAlert reports a slot with no matching backup.
type MissingBackupAlert struct {
	ReferenceDate time.Time `json:"referenceDate"`
	Task          string    `json:"-"`
	Schedule      string    `json:"-"`
}

// AdditionalBackupAlert reports a backup in a slot that another backup already matches.
type AdditionalBackupAlert struct {
	BackupID string    `json:"backupId"`
	Date     time.Time `json:"date"`
	Task     string    `json:"-"`
	Schedule string    `json:"-"`
}

func (CreationDateAlert) alert()     {}
func (MissingBackupAlert) alert()    {}
func (AdditionalBackupAlert) alert() {}

// Kind implements Alert.
func (CreationDateAlert) Kind() AlertKind { return CreationDateKind }

// Kind implements Alert.
func (MissingBackupAlert) Kind() AlertKind { return MissingBackupKind }

// Kind implements Alert.
func (AdditionalBackupAlert) Kind() AlertKind { return AdditionalBackupKind }

// EventTime is the observed date of the backup.
func (a CreationDateAlert) EventTime() time.Time { return a.Date }

// EventTime is the expected date of the empty slot.
func (a MissingBackupAlert) EventTime() time.Time { return a.ReferenceDate }

// EventTime is the observed date of the backup.
func (a AdditionalBackupAlert) EventTime() time.Time { return a.Date }

// Accept implements Alert.
func (a CreationDateAlert) Accept(v AlertVisitor) { v.VisitCreationDate(a) }

// Accept implements Alert.
func (a MissingBackupAlert) Accept(v AlertVisitor) { v.VisitMissingBackup(a) }

// Accept implements Alert.
func (a AdditionalBackupAlert) Accept(v AlertVisitor) { v.VisitAdditionalBackup(a) }

// AlertRow is a flattened view of any alert, used for tables, CSV and history rows.
type AlertRow struct {
	Kind          AlertKind  `json:"kind"`
	Task          string     `json:"task,omitempty"` // data store name for storage alerts
	Schedule      string     `json:"schedule,omitempty"`
	BackupID      string     `json:"backupId,omitempty"`
	EventTime     time.Time  `json:"eventTime"`
	ReferenceTime *time.Time `json:"referenceTime,omitempty"`
}

type rowVisitor struct{ row AlertRow }

func (v *rowVisitor) VisitCreationDate(a CreationDateAlert) {
	ref := a.ReferenceDate
	v.row = AlertRow{Kind: a.Kind(), Task: a.Task, Schedule: a.Schedule, BackupID: a.BackupID, EventTime: a.Date, ReferenceTime: &ref}
}

func (v *rowVisitor) VisitMissingBackup(a MissingBackupAlert) {
	ref := a.ReferenceDate
	v.row = AlertRow{Kind: a.Kind(), Task: a.Task, Schedule: a.Schedule, EventTime: a.ReferenceDate, ReferenceTime: &ref}
}

func (v *rowVisitor) VisitAdditionalBackup(a AdditionalBackupAlert) {
	v.row = AlertRow{Kind: a.Kind(), Task: a.Task, Schedule: a.Schedule, BackupID: a.BackupID, EventTime: a.Date}
}

// RowOf flattens an alert.
func RowOf(a Alert) AlertRow {
	v := &rowVisitor{}
	a.Accept(v)
	return v.row
}

// SizeAlert reports a drastic size change between consecutive backups of one kind.
type SizeAlert struct {
	BackupID      string    `json:"backupId"`
	Saveset       string    `json:"backupSavesetName"`
	Size          float64   `json:"size"`          // MB
	ReferenceSize float64   `json:"referenceSize"` // MB
	Date          time.Time `json:"-"`
	Task          string    `json:"-"`
}

// Row flattens a size alert.
func (a SizeAlert) Row() AlertRow {
	return AlertRow{Kind: SizeKind, Task: a.Task, BackupID: a.BackupID, EventTime: a.Date}
}

// StorageFillAlert reports a data store filled above its high water mark.
type StorageFillAlert struct {
	Name          string  `json:"dataStoreName"`
	UUID          string  `json:"dataStoreId,omitempty"`
	Capacity      float64 `json:"capacity"`
	Filled        float64 `json:"filled"`
	HighWaterMark float64 `json:"highWaterMark"`
}

// Row flattens a storage fill alert. The event time is the analysis time.
func (a StorageFillAlert) Row(at time.Time) AlertRow {
	return AlertRow{Kind: StorageFillKind, Task: a.Name, EventTime: at}
}
