package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"trainercal/internal/model"
)

func TestTrainingSession_DecodeBackendJSON(t *testing.T) {
	raw := `{"id":2,"trainer_id":1,"client_id":9,"session_group_id":100,"location_id":null,
		"scheduled_at":"2026-02-03T14:00:00Z","duration_minutes":45,"status":"scheduled",
		"notes":null,"is_paid":false}`

	var s model.TrainingSession
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if s.SessionGroupID == nil || *s.SessionGroupID != 100 {
		t.Errorf("SessionGroupID = %v, want 100", s.SessionGroupID)
	}
	if s.LocationID != nil {
		t.Errorf("LocationID = %v, want nil", s.LocationID)
	}
	if !s.Grouped() || s.Cancelled() {
		t.Errorf("Grouped() = %v, Cancelled() = %v", s.Grouped(), s.Cancelled())
	}
	if want := time.Date(2026, 2, 3, 14, 45, 0, 0, time.UTC); !s.End().Equal(want) {
		t.Errorf("End() = %s, want %s", s.End(), want)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"scheduled", "in_progress", "completed", "cancelled"} {
		if _, err := model.ParseStatus(s); err != nil {
			t.Errorf("ParseStatus(%q) error = %v", s, err)
		}
	}
	if _, err := model.ParseStatus("deleted"); err == nil {
		t.Error("ParseStatus(deleted) returned no error")
	}
}

func TestParseViewMode(t *testing.T) {
	if got := model.ParseViewMode("day", model.ViewWeek); got != model.ViewDay {
		t.Errorf("ParseViewMode(day) = %s", got)
	}
	if got := model.ParseViewMode("month", model.ViewWeek); got != model.ViewWeek {
		t.Errorf("ParseViewMode(month) = %s, want fallback", got)
	}
}

func TestNewSession_Validate(t *testing.T) {
	at := time.Date(2026, 2, 3, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		in      model.NewSession
		wantErr bool
	}{
		{"single client", model.NewSession{ClientIDs: []int64{7}, ScheduledAt: at, DurationMinutes: 60}, false},
		{"group", model.NewSession{ClientIDs: []int64{7, 9}, ScheduledAt: at, DurationMinutes: 45}, false},
		{"no clients", model.NewSession{ScheduledAt: at, DurationMinutes: 60}, true},
		{"no time", model.NewSession{ClientIDs: []int64{7}, DurationMinutes: 60}, true},
		{"too short", model.NewSession{ClientIDs: []int64{7}, ScheduledAt: at, DurationMinutes: 10}, true},
		{"too long", model.NewSession{ClientIDs: []int64{7}, ScheduledAt: at, DurationMinutes: 481}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
