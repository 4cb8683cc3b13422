package clock

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// Zone is a fixed-offset, DST-free operating timezone. Every wall-clock
// computation in the engine goes through a Zone; nothing reads time.Local.
type Zone struct {
	loc           *time.Location
	offsetMinutes int
}

// FixedZone builds a Zone from an offset in minutes east of UTC (UTC−5 is -300).
func FixedZone(offsetMinutes int) Zone {
	return Zone{
		loc:           time.FixedZone(formatOffset(offsetMinutes), offsetMinutes*60),
		offsetMinutes: offsetMinutes,
	}
}

// ParseOffset accepts "-05:00", "+0930", "UTC-5", "Z" or "UTC".
func ParseOffset(s string) (Zone, error) {
	raw := strings.TrimSpace(s)
	v := strings.TrimPrefix(strings.ToUpper(raw), "UTC")
	if v == "" || v == "Z" {
		return FixedZone(0), nil
	}

	sign := 1
	switch v[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return Zone{}, fmt.Errorf("clock: offset %q must start with + or -", raw)
	}
	v = strings.ReplaceAll(v[1:], ":", "")

	var hours, minutes int
	var err error
	switch {
	case len(v) <= 2:
		hours, err = strconv.Atoi(v)
	case len(v) == 4:
		hours, err = strconv.Atoi(v[:2])
		if err == nil {
			minutes, err = strconv.Atoi(v[2:])
		}
	default:
		err = errors.New("unexpected length")
	}
	if err != nil {
		return Zone{}, fmt.Errorf("clock: invalid offset %q: %w", raw, err)
	}
	if hours > 14 || minutes > 59 {
		return Zone{}, fmt.Errorf("clock: offset %q out of range", raw)
	}
	return FixedZone(sign * (hours*60 + minutes)), nil
}

func formatOffset(offsetMinutes int) string {
	sign := '+'
	if offsetMinutes < 0 {
		sign = '-'
		offsetMinutes = -offsetMinutes
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, offsetMinutes/60, offsetMinutes%60)
}

func (z Zone) location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// Location exposes the underlying fixed location, e.g. for RRULE expansion.
func (z Zone) Location() *time.Location { return z.location() }

func (z Zone) OffsetMinutes() int { return z.offsetMinutes }

func (z Zone) String() string { return formatOffset(z.offsetMinutes) }

// WallClock returns t viewed in the zone: Hour, Minute, Day and friends on
// the result report the local wall-clock fields. The instant is unchanged.
func (z Zone) WallClock(t time.Time) time.Time {
	return t.In(z.location())
}

// MinutesSinceMidnight returns the local time-of-day of t in [0, 1440).
func (z Zone) MinutesSinceMidnight(t time.Time) int {
	w := z.WallClock(t)
	return w.Hour()*60 + w.Minute()
}

// DateOf returns the local calendar date of t.
func (z Zone) DateOf(t time.Time) Date {
	w := z.WallClock(t)
	return Date{Year: w.Year(), Month: w.Month(), Day: w.Day()}
}

// Instant combines a local date and minutes-since-midnight into a UTC instant.
// minutes outside [0, 1440) roll into neighbouring days.
func (z Zone) Instant(d Date, minutes int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, minutes, 0, 0, z.location()).UTC()
}

// InstantPrecise is Instant plus a sub-minute remainder. Together with
// DateOf, MinutesSinceMidnight and SubMinute it reproduces any instant exactly.
func (z Zone) InstantPrecise(d Date, minutes int, rem time.Duration) time.Time {
	return z.Instant(d, minutes).Add(rem)
}

// SubMinute returns the seconds and nanoseconds of t below the minute.
func SubMinute(t time.Time) time.Duration {
	return time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())
}

// ParseInstant combines "YYYY-MM-DD" and "HH:MM" local strings into a UTC instant.
func (z Zone) ParseInstant(date, hhmm string) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	tod, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("clock: invalid time %q: %w", hhmm, err)
	}
	return z.Instant(d, tod.Hour()*60+tod.Minute()), nil
}

// StartOfDay and EndOfDay bound a local date as UTC instants; EndOfDay is 23:59:59.
func (z Zone) StartOfDay(d Date) time.Time {
	return z.Instant(d, 0)
}

func (z Zone) EndOfDay(d Date) time.Time {
	return z.Instant(d, minutesPerDay).Add(-time.Second)
}

// FormatHHMM renders minutes since midnight as "HH:MM".
func FormatHHMM(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
