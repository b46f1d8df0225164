package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05"
)

// Accepted layouts for operation timestamps, most specific first. Every value
// is kept as wall-clock time in UTC, which is how the collaborator's
// LocalDateTime values round-trip; an RFC 3339 offset is dropped.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	TimestampLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

type (
	// Date is a calendar day at UTC midnight.
	Date struct {
		time.Time
	}

	// Timestamp is an operation date and time.
	Timestamp struct {
		time.Time
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// At returns a timestamp on this day at the given wall-clock time.
func (d Date) At(hour, minute int) Timestamp {
	y, m, day := d.Time.Date()
	return Timestamp{Time: time.Date(y, m, day, hour, minute, 0, 0, time.UTC)}
}

// NewTimestamp builds a wall-clock timestamp.
func NewTimestamp(year, month, day, hour, minute int) Timestamp {
	return Timestamp{Time: time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)}
}

// ParseTimestamp accepts the date-time formats produced by the UI
// (datetime-local inputs, with or without seconds) and by the collaborator.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: wallClockUTC(t)}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// wallClockUTC keeps the date and time shown in t's own zone and moves it to
// UTC, so range filters and day buckets agree on the calendar day.
func wallClockUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Day returns the calendar day the timestamp falls on.
func (t Timestamp) Day() Date {
	y, m, d := t.Time.Date()
	return NewDate(y, int(m), d)
}

func (t Timestamp) String() string {
	return t.Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(TimestampLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DayRange converts an inclusive pair of days into instants: start is the
// first instant of from, end the last nanosecond of to.
func DayRange(from, to Date) (start, end time.Time) {
	return from.Time, to.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// MonthRange returns the first and last day of a month.
func MonthRange(year, month int) (first, last Date) {
	first = NewDate(year, month, 1)
	last = Date{Time: first.AddDate(0, 1, -1)}
	return first, last
}

// InRange reports whether t lies in [start, end], both ends inclusive.
func InRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
