package main

import (
	"testing"
	"time"

	"trainercal/internal/clock"
)

func TestCalendarURL(t *testing.T) {
	feb3 := clock.NewDate(2026, time.February, 3)
	tests := []struct {
		listen string
		date   clock.Date
		want   string
	}{
		{"127.0.0.1:8080", clock.Date{}, "http://127.0.0.1:8080/calendar"},
		{":9000", feb3, "http://127.0.0.1:9000/calendar?date=2026-02-03"},
		{"0.0.0.0:8080", clock.Date{}, "http://127.0.0.1:8080/calendar"},
		{"[::1]:8080", clock.Date{}, "http://[::1]:8080/calendar"},
		{"garbage", clock.Date{}, "http://127.0.0.1:8080/calendar"},
	}
	for _, tt := range tests {
		t.Run(tt.listen, func(t *testing.T) {
			if got := calendarURL(tt.listen, tt.date); got != tt.want {
				t.Errorf("calendarURL(%q) = %q, want %q", tt.listen, got, tt.want)
			}
		})
	}
}
