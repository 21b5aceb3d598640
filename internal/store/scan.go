package store

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// The metadata tables are written by other systems and the three drivers
// disagree on affinity: the same column may arrive as time.Time, text, bytes
// or a number. These scanners accept every shape seen in practice.

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// nullTime scans a timestamp stored natively or as text.
type nullTime struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (n *nullTime) Scan(src any) error {
	n.Time, n.Valid = time.Time{}, false
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		n.Time, n.Valid = v, true
		return nil
	case int64:
		n.Time, n.Valid = time.Unix(v, 0).UTC(), true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into a timestamp", src)
	}
}

func (n *nullTime) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t, true
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// flexString scans text, numbers, booleans and raw uuids into a string.
type flexString string

// Scan implements sql.Scanner.
func (f *flexString) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = ""
	case string:
		*f = flexString(v)
	case []byte:
		if len(v) == 16 && !isPrintable(v) {
			id, err := uuid.FromBytes(v)
			if err != nil {
				return err
			}
			*f = flexString(id.String())
			return nil
		}
		*f = flexString(v)
	case [16]byte:
		*f = flexString(uuid.UUID(v).String())
	case int64:
		*f = flexString(strconv.FormatInt(v, 10))
	case float64:
		*f = flexString(strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		if v {
			*f = "1"
		} else {
			*f = "0"
		}
	default:
		return fmt.Errorf("cannot scan %T into a string", src)
	}
	return nil
}

func isPrintable(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// flexBool scans booleans stored as bool, integer or text.
type flexBool bool

// Scan implements sql.Scanner.
func (f *flexBool) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = false
	case bool:
		*f = flexBool(v)
	case int64:
		*f = v != 0
	case float64:
		*f = v != 0
	case string:
		*f = flexBool(truthy(v))
	case []byte:
		*f = flexBool(truthy(string(v)))
	default:
		return fmt.Errorf("cannot scan %T into a bool", src)
	}
	return nil
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes":
		return true
	default:
		return false
	}
}

// nullInt scans integers stored as numbers or text.
type nullInt struct {
	Int   int64
	Valid bool
}

// Scan implements sql.Scanner.
func (n *nullInt) Scan(src any) error {
	n.Int, n.Valid = 0, false
	switch v := src.(type) {
	case nil:
		return nil
	case int64:
		n.Int, n.Valid = v, true
	case float64:
		n.Int, n.Valid = int64(v), true
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into an integer", src)
	}
	return nil
}

func (n *nullInt) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		n.Int, n.Valid = i, true
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("unrecognized integer %q", s)
	}
	n.Int, n.Valid = int64(f), true
	return nil
}

// Ptr returns nil for NULL.
func (n nullInt) Ptr() *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int
	return &v
}

// nullFloat scans reals stored as numbers or text.
type nullFloat struct {
	Float float64
	Valid bool
}

// Scan implements sql.Scanner.
func (n *nullFloat) Scan(src any) error {
	n.Float, n.Valid = 0, false
	switch v := src.(type) {
	case nil:
		return nil
	case float64:
		n.Float, n.Valid = v, true
	case float32:
		n.Float, n.Valid = float64(v), true
	case int64:
		n.Float, n.Valid = float64(v), true
	case string, []byte:
		s := strings.TrimSpace(fmt.Sprintf("%s", v))
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("unrecognized number %q", s)
		}
		n.Float, n.Valid = f, true
	default:
		return fmt.Errorf("cannot scan %T into a number", src)
	}
	return nil
}

// Ptr returns nil for NULL.
func (n nullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float
	return &v
}

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})(:\d{2}(\.\d+)?)?$`)

// clock scans a time-of-day column into "HH:MM". Values that do not look like
// a clock are kept verbatim so that recurrence can report them.
type clock string

// Scan implements sql.Scanner.
func (c *clock) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = ""
	case time.Time:
		*c = clock(v.Format("15:04"))
	case string:
		*c = normalizeClock(v)
	case []byte:
		*c = normalizeClock(string(v))
	default:
		return fmt.Errorf("cannot scan %T into a clock", src)
	}
	return nil
}

func normalizeClock(s string) clock {
	s = strings.TrimSpace(s)
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return clock(s)
	}
	h, _ := strconv.Atoi(m[1])
	return clock(fmt.Sprintf("%02d:%s", h, m[2]))
}
