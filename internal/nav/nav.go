package nav

import (
	"time"

	"trainercal/internal/clock"
	"trainercal/internal/model"
)

// BufferDays is how far the fetch window reaches past each end of the month,
// so week views that straddle a month boundary need no second request.
const BufferDays = 7

// Window is an inclusive range of instants to request sessions for.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func step(mode model.ViewMode) int {
	if mode == model.ViewDay {
		return 1
	}
	return 7
}

// Previous moves back one page: 7 days in week mode, 1 in day mode.
func Previous(d clock.Date, mode model.ViewMode) clock.Date {
	return d.AddDays(-step(mode))
}

// Next moves forward one page.
func Next(d clock.Date, mode model.ViewMode) clock.Date {
	return d.AddDays(step(mode))
}

// Today returns the local date of c's now in z.
func Today(c clock.Clock, z clock.Zone) clock.Date {
	return clock.Today(c, z)
}

// FetchWindow returns the session window for the month containing anchor,
// padded by BufferDays on both sides: from the first of the month at 00:00
// to the last of the month at 23:59:59, local time.
func FetchWindow(z clock.Zone, anchor clock.Date) Window {
	return Window{
		Start: z.StartOfDay(anchor.FirstOfMonth().AddDays(-BufferDays)),
		End:   z.EndOfDay(anchor.LastOfMonth().AddDays(BufferDays)),
	}
}

// WeekStart returns the first day of the week containing d.
func WeekStart(d clock.Date, first time.Weekday) clock.Date {
	back := (int(d.Weekday()) - int(first) + 7) % 7
	return d.AddDays(-back)
}

// VisibleDays lists the columns shown for d: the whole week in week mode,
// or just d in day mode.
func VisibleDays(d clock.Date, mode model.ViewMode, first time.Weekday) []clock.Date {
	if mode == model.ViewDay {
		return []clock.Date{d}
	}
	start := WeekStart(d, first)
	days := make([]clock.Date, 7)
	for i := range days {
		days[i] = start.AddDays(i)
	}
	return days
}

// Covers reports whether every visible day of d lies inside the fetch window
// of anchor. Callers use it to decide whether a page move needs a new fetch.
func Covers(z clock.Zone, anchor, d clock.Date, mode model.ViewMode, first time.Weekday) bool {
	w := FetchWindow(z, anchor)
	for _, day := range VisibleDays(d, mode, first) {
		if !w.Contains(z.StartOfDay(day)) || !w.Contains(z.EndOfDay(day)) {
			return false
		}
	}
	return true
}
