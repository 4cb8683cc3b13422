package capture

import (
	"context"
	"strings"
	"testing"
)

func TestCalendarPNG_RequiresTarget(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"no url", Options{OutputPath: "/tmp/x.png"}, "URL is required"},
		{"no output", Options{URL: "http://127.0.0.1:8080/calendar"}, "OutputPath is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CalendarPNG(context.Background(), tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("CalendarPNG() error = %v, want %q", err, tt.want)
			}
		})
	}
}
