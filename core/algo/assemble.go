package algo

import (
	"slices"

	"github.com/huangsam/backupwatch/schema"
)

// Alert limits.
const (
	DefaultAlertLimit = 10
	NoAlertLimit      = -1
)

// SortAlerts orders alerts by event time, keeping the relative order of ties.
func SortAlerts(alerts []schema.Alert) {
	slices.SortStableFunc(alerts, func(a, b schema.Alert) int {
		return a.EventTime().Compare(b.EventTime())
	})
}

// LimitAlerts keeps the first limit alerts. NoAlertLimit keeps all of them,
// any other negative limit keeps none.
func LimitAlerts[T any](alerts []T, limit int) []T {
	switch {
	case limit == NoAlertLimit || len(alerts) <= limit:
		return alerts
	case limit < 0:
		return alerts[:0]
	}
	return alerts[:limit]
}

// Batches holds sorted alerts split by kind, one list per dispatch channel.
type Batches struct {
	CreationDate []schema.CreationDateAlert
	Missing      []schema.MissingBackupAlert
	Additional   []schema.AdditionalBackupAlert
}

var _ schema.AlertVisitor = (*Batches)(nil) // Compile-time check

// VisitCreationDate implements schema.AlertVisitor.
func (b *Batches) VisitCreationDate(a schema.CreationDateAlert) {
	b.CreationDate = append(b.CreationDate, a)
}

// VisitMissingBackup implements schema.AlertVisitor.
func (b *Batches) VisitMissingBackup(a schema.MissingBackupAlert) {
	b.Missing = append(b.Missing, a)
}

// VisitAdditionalBackup implements schema.AlertVisitor.
func (b *Batches) VisitAdditionalBackup(a schema.AdditionalBackupAlert) {
	b.Additional = append(b.Additional, a)
}

// Len is the total number of alerts across all batches.
func (b Batches) Len() int {
	return len(b.CreationDate) + len(b.Missing) + len(b.Additional)
}

// Partition splits alerts by kind. Each batch keeps the input order.
func Partition(alerts []schema.Alert) Batches {
	var b Batches
	for _, a := range alerts {
		a.Accept(&b)
	}
	return b
}

// Assemble sorts, limits and partitions the alerts of every pair.
func Assemble(perPair [][]schema.Alert, limit int) ([]schema.Alert, Batches) {
	var all []schema.Alert
	for _, alerts := range perPair {
		all = append(all, alerts...)
	}
	SortAlerts(all)
	kept := LimitAlerts(all, limit)
	return kept, Partition(kept)
}
