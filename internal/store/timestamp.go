package store

import (
	"fmt"
	"time"
)

// timeLayout is fixed-width so that stored timestamps sort lexically in the
// same order as chronologically.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Clock returns the current time. Stores truncate it to milliseconds.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(v any) (time.Time, error) {
	switch s := v.(type) {
	case string:
		return time.Parse(timeLayout, s)
	case []byte:
		return time.Parse(timeLayout, string(s))
	case time.Time:
		return s.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}

// timeText scans a stored timestamp into a time.Time.
type timeText struct{ dst *time.Time }

func (s timeText) Scan(src any) error {
	t, err := parseTime(src)
	if err != nil {
		return err
	}
	*s.dst = t
	return nil
}

// nullTimeText scans a nullable stored timestamp into a *time.Time.
type nullTimeText struct{ dst **time.Time }

func (s nullTimeText) Scan(src any) error {
	if src == nil {
		*s.dst = nil
		return nil
	}
	t, err := parseTime(src)
	if err != nil {
		return err
	}
	*s.dst = &t
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
