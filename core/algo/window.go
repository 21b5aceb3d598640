package algo

import (
	"slices"
	"sort"
	"time"

	"github.com/huangsam/backupwatch/schema"
)

// FloodThreshold is how many consecutive alerting windows a pair may produce
// before its accumulated alerts are discarded as a data gap.
const FloodThreshold = 10

// MatchSchedule walks the slots of one (task, schedule) pair and returns the
// alerts for slots whose previous slot is at or after start. The walk starts at
// the first observed record and stops before stop, which is clamped to two
// intervals past the last observed record.
func MatchSchedule(rec *Recurrence, task string, records []schema.BackupRecord, start, stop time.Time) []schema.Alert {
	if len(records) == 0 {
		return nil
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b schema.BackupRecord) int {
		return a.Start.Compare(b.Start)
	})
	first, last := sorted[0].Start, sorted[len(sorted)-1].Start
	if horizon := last.Add(2 * rec.Delta()); horizon.Before(stop) {
		stop = horizon
	}

	m := matcher{task: task, schedule: rec.Schedule().Name, tolerance: rec.Tolerance()}

	var alerts []schema.Alert
	consecutive := 0
	lastRef, curRef, nextRef := first, first, rec.Next(first)
	for curRef.Before(stop) {
		left := lastRef.Add(curRef.Sub(lastRef) / 2)
		right := curRef.Add(nextRef.Sub(curRef) / 2)
		found := m.match(recordsIn(sorted, left, right), curRef)

		if !lastRef.Before(start) {
			alerts = append(alerts, found...)
		}

		// Flood control
		if len(found) > 0 {
			consecutive++
		} else {
			consecutive = 0
		}
		if consecutive > FloodThreshold {
			alerts = alerts[:0]
		}

		lastRef, curRef, nextRef = curRef, nextRef, rec.Next(nextRef)
	}
	return alerts
}

// recordsIn returns the records with left <= start < right from a start-sorted slice.
func recordsIn(sorted []schema.BackupRecord, left, right time.Time) []schema.BackupRecord {
	lo := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Start.Before(left) })
	hi := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Start.Before(right) })
	if hi < lo {
		hi = lo
	}
	return sorted[lo:hi]
}

type matcher struct {
	task      string
	schedule  string
	tolerance time.Duration
}

// match produces the alerts of a single slot.
func (m matcher) match(window []schema.BackupRecord, slot time.Time) []schema.Alert {
	if len(window) == 0 {
		return []schema.Alert{schema.MissingBackupAlert{ReferenceDate: slot, Task: m.task, Schedule: m.schedule}}
	}

	nearest := 0
	best := absDuration(window[0].Start.Sub(slot))
	for i := 1; i < len(window); i++ {
		if d := absDuration(window[i].Start.Sub(slot)); d < best {
			nearest, best = i, d
		}
	}

	var out []schema.Alert
	n := window[nearest]
	if best > m.tolerance {
		out = append(out, schema.CreationDateAlert{
			BackupID:      n.ID,
			Date:          n.Start,
			ReferenceDate: slot,
			Task:          m.task,
			Schedule:      m.schedule,
		})
	}
	for _, r := range window {
		if r.ID == n.ID {
			continue
		}
		out = append(out, schema.AdditionalBackupAlert{BackupID: r.ID, Date: r.Start, Task: m.task, Schedule: m.schedule})
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
