package clock

import (
	"fmt"
	"time"
)

// DateLayout is the wire/query format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a civil calendar date with no time-of-day and no zone. Grid columns
// are keyed by Date so that day membership never depends on the host timezone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes out-of-range fields the way time.Date does
// (e.g. Feb 30 becomes Mar 2).
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("clock: invalid date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// utcMidnight is only used for calendar arithmetic; it is never exposed as an instant.
func (d Date) utcMidnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

func (d Date) Weekday() time.Weekday {
	return d.utcMidnight().Weekday()
}

func (d Date) Before(o Date) bool {
	return d.utcMidnight().Before(o.utcMidnight())
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

// DaysUntil returns the number of calendar days from d to o (negative if o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.utcMidnight().Sub(d.utcMidnight()).Hours() / 24)
}

func (d Date) FirstOfMonth() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

func (d Date) LastOfMonth() Date {
	// Day 0 of the next month is the last day of this one.
	return NewDate(d.Year, d.Month+1, 0)
}

// MarshalText lets Date travel as "YYYY-MM-DD" in JSON and query strings.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
