// Package algo holds the pure schedule-compliance algorithms: recurrence
// generation, task grouping, slot matching and alert assembly.
package algo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/backupwatch/schema"
)

// Length of one base unit. Months are a fixed 30 days.
var baseUnits = map[schema.ScheduleBase]time.Duration{
	schema.MinuteBase: time.Minute,
	schema.HourBase:   time.Hour,
	schema.DayBase:    24 * time.Hour,
	schema.WeekBase:   7 * 24 * time.Hour,
	schema.MonthBase:  30 * 24 * time.Hour,
}

// Recurrence errors.
var (
	ErrUnsupportedBase = errors.New("unsupported schedule base")
	ErrInvalidCount    = errors.New("schedule count out of range")
	ErrNoWeekdays      = errors.New("no weekday enabled")
	ErrMalformedAnchor = errors.New("malformed anchor time")
)

// Recurrence computes the expected instants of one schedule.
type Recurrence struct {
	schedule  schema.Schedule
	delta     time.Duration
	anchored  bool
	hour      int
	minute    int
	anchorErr error
}

// NewRecurrence validates a schedule and prepares it for walking.
// A malformed anchor is not fatal: the recurrence is returned without
// re-anchoring and AnchorErr reports the problem.
func NewRecurrence(s schema.Schedule) (*Recurrence, error) {
	unit, ok := baseUnits[s.Base]
	if !ok {
		return nil, fmt.Errorf("schedule %q: %w %q", s.Name, ErrUnsupportedBase, s.Base)
	}
	if s.Count <= 0 {
		return nil, fmt.Errorf("schedule %q: %w (got %d)", s.Name, ErrInvalidCount, s.Count)
	}
	// Matching looks two intervals ahead; that horizon must fit a time.Duration.
	if int64(s.Count) > math.MaxInt64/(2*int64(unit)) {
		return nil, fmt.Errorf("schedule %q: %w (got %d, interval too large)", s.Name, ErrInvalidCount, s.Count)
	}
	if usesWeekdays(s.Base) && !s.AnyWeekday() {
		return nil, fmt.Errorf("schedule %q: %w", s.Name, ErrNoWeekdays)
	}

	r := &Recurrence{schedule: s, delta: time.Duration(s.Count) * unit}
	if usesAnchor(s.Base) {
		h, m, err := parseAnchor(s.Anchor)
		if err != nil {
			r.anchorErr = fmt.Errorf("schedule %q: %w", s.Name, err)
		} else {
			r.anchored, r.hour, r.minute = true, h, m
		}
	}
	return r, nil
}

// Next returns the expected instant following t.
func (r *Recurrence) Next(t time.Time) time.Time {
	c := t.Add(r.delta)
	if r.anchored {
		c = time.Date(c.Year(), c.Month(), c.Day(), r.hour, r.minute, 0, 0, c.Location())
	}
	if usesWeekdays(r.schedule.Base) {
		// Terminates within a week: NewRecurrence rejects schedules without weekdays.
		for range 7 {
			if r.schedule.WeekdayEnabled(c.Weekday()) {
				break
			}
			c = c.AddDate(0, 0, 1)
		}
	}
	return c
}

// Slots returns the n instants following from.
func (r *Recurrence) Slots(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, max(n, 0))
	cur := from
	for range n {
		cur = r.Next(cur)
		out = append(out, cur)
	}
	return out
}

// Delta is the nominal interval, count times the base unit.
func (r *Recurrence) Delta() time.Duration { return r.delta }

// Tolerance is the allowed deviation from a slot, 10% of Delta.
func (r *Recurrence) Tolerance() time.Duration { return r.delta / 10 }

// AnchorErr reports a malformed anchor that was skipped.
func (r *Recurrence) AnchorErr() error { return r.anchorErr }

// Schedule returns the underlying schedule.
func (r *Recurrence) Schedule() schema.Schedule { return r.schedule }

func usesAnchor(b schema.ScheduleBase) bool {
	return b == schema.DayBase || b == schema.WeekBase || b == schema.MonthBase
}

func usesWeekdays(b schema.ScheduleBase) bool {
	return b == schema.WeekBase || b == schema.MonthBase
}

// parseAnchor parses "HH:MM".
func parseAnchor(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w %q: expected HH:MM", ErrMalformedAnchor, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("%w %q: bad hour", ErrMalformedAnchor, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w %q: bad minute", ErrMalformedAnchor, s)
	}
	return h, m, nil
}
