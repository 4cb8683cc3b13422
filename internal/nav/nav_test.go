package nav_test

import (
	"testing"
	"time"

	"trainercal/internal/clock"
	"trainercal/internal/model"
	"trainercal/internal/nav"
)

func TestPreviousNext(t *testing.T) {
	d := clock.NewDate(2026, 3, 2)
	tests := []struct {
		mode     model.ViewMode
		wantPrev string
		wantNext string
	}{
		{model.ViewWeek, "2026-02-23", "2026-03-09"},
		{model.ViewDay, "2026-03-01", "2026-03-03"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if got := nav.Previous(d, tt.mode).String(); got != tt.wantPrev {
				t.Errorf("Previous() = %s, want %s", got, tt.wantPrev)
			}
			if got := nav.Next(d, tt.mode).String(); got != tt.wantNext {
				t.Errorf("Next() = %s, want %s", got, tt.wantNext)
			}
		})
	}
}

func TestFetchWindow(t *testing.T) {
	z := clock.FixedZone(-300)
	w := nav.FetchWindow(z, clock.NewDate(2026, 2, 17))

	// Jan 25 00:00 local = Jan 25 05:00 UTC.
	if want := time.Date(2026, 1, 25, 5, 0, 0, 0, time.UTC); !w.Start.Equal(want) {
		t.Errorf("Start = %s, want %s", w.Start, want)
	}
	// Mar 7 23:59:59 local = Mar 8 04:59:59 UTC.
	if want := time.Date(2026, 3, 8, 4, 59, 59, 0, time.UTC); !w.End.Equal(want) {
		t.Errorf("End = %s, want %s", w.End, want)
	}
}

func TestFetchWindow_YearBoundary(t *testing.T) {
	z := clock.FixedZone(0)
	w := nav.FetchWindow(z, clock.NewDate(2026, 12, 31))
	if got := z.DateOf(w.Start).String(); got != "2026-11-24" {
		t.Errorf("Start date = %s", got)
	}
	if got := z.DateOf(w.End).String(); got != "2027-01-07" {
		t.Errorf("End date = %s", got)
	}
}

func TestToday(t *testing.T) {
	z := clock.FixedZone(-300)
	c := clock.Fixed(time.Date(2026, 2, 4, 1, 0, 0, 0, time.UTC))
	if got := nav.Today(c, z).String(); got != "2026-02-03" {
		t.Errorf("Today() = %s", got)
	}
}

func TestVisibleDays(t *testing.T) {
	d := clock.NewDate(2026, 2, 4) // Wednesday
	mon := nav.VisibleDays(d, model.ViewWeek, time.Monday)
	if len(mon) != 7 || mon[0].String() != "2026-02-02" || mon[6].String() != "2026-02-08" {
		t.Errorf("monday week = %v", mon)
	}
	sun := nav.VisibleDays(d, model.ViewWeek, time.Sunday)
	if sun[0].String() != "2026-02-01" {
		t.Errorf("sunday week starts %s", sun[0])
	}
	// A Sunday with Monday-start weeks belongs to the week that began 6 days earlier.
	if got := nav.WeekStart(clock.NewDate(2026, 2, 8), time.Monday).String(); got != "2026-02-02" {
		t.Errorf("WeekStart(sunday) = %s", got)
	}
	day := nav.VisibleDays(d, model.ViewDay, time.Monday)
	if len(day) != 1 || day[0] != d {
		t.Errorf("day view = %v", day)
	}
}

func TestCovers(t *testing.T) {
	z := clock.FixedZone(-300)
	anchor := clock.NewDate(2026, 2, 17)
	// Window runs Jan 25 .. Mar 7.
	if !nav.Covers(z, anchor, clock.NewDate(2026, 2, 25), model.ViewWeek, time.Monday) {
		t.Error("week of Feb 23 should fit the February window")
	}
	if !nav.Covers(z, anchor, clock.NewDate(2026, 3, 7), model.ViewDay, time.Monday) {
		t.Error("Mar 7 should fit the February window")
	}
	if nav.Covers(z, anchor, clock.NewDate(2026, 3, 2), model.ViewWeek, time.Monday) {
		t.Error("week of Mar 2 runs to Mar 8 and should need a new fetch")
	}
}
