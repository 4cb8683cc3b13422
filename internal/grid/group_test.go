package grid

import (
	"testing"
	"time"

	"trainercal/internal/clock"
	"trainercal/internal/model"
)

func ptr[T any](v T) *T { return &v }

func session(id, client int64, group *int64, at time.Time, status model.Status) model.TrainingSession {
	return model.TrainingSession{
		ID:              id,
		ClientID:        client,
		SessionGroupID:  group,
		ScheduledAt:     at,
		DurationMinutes: 60,
		Status:          status,
	}
}

func TestGroup_Cardinality(t *testing.T) {
	at := time.Date(2026, 2, 3, 15, 0, 0, 0, time.UTC)
	g := ptr(int64(100))
	sessions := []model.TrainingSession{
		session(1, 7, nil, at, model.StatusScheduled),
		session(2, 9, g, at, model.StatusScheduled),
		session(3, 10, g, at, model.StatusScheduled),
		session(4, 11, nil, at, model.StatusScheduled),
		session(5, 12, g, at, model.StatusScheduled),
	}
	names := ClientNames{7: "Ana", 9: "Bruno", 10: "Carla", 11: "Diego", 12: "Elena"}

	units := Group(sessions, false, names)
	if len(units) != 3 {
		t.Fatalf("Group(unfiltered) = %d units, want 3", len(units))
	}
	wantLabels := []string{"Ana", "3 clients", "Diego"}
	for i, want := range wantLabels {
		if units[i].Label != want {
			t.Errorf("unit %d label = %q, want %q", i, units[i].Label, want)
		}
	}
	if !units[1].Grouped || units[1].Count != 3 || units[1].Session.ID != 2 {
		t.Errorf("grouped unit = %+v, want first session of group with count 3", units[1])
	}

	filtered := Group(sessions, true, names)
	if len(filtered) != 5 {
		t.Fatalf("Group(filtered) = %d units, want 5", len(filtered))
	}
	for i, u := range filtered {
		if u.Grouped || u.Count != 1 {
			t.Errorf("filtered unit %d = %+v, want a single-session unit", i, u)
		}
		if u.Label != names[sessions[i].ClientID] {
			t.Errorf("filtered unit %d label = %q", i, u.Label)
		}
	}
}

func TestGroup_PreservesFirstOccurrenceOrder(t *testing.T) {
	at := time.Date(2026, 2, 3, 15, 0, 0, 0, time.UTC)
	a, b := ptr(int64(1)), ptr(int64(2))
	sessions := []model.TrainingSession{
		session(10, 1, b, at, model.StatusScheduled),
		session(11, 2, a, at, model.StatusScheduled),
		session(12, 3, b, at, model.StatusScheduled),
		session(13, 4, a, at, model.StatusScheduled),
	}
	units := Group(sessions, false, nil)
	if len(units) != 2 || units[0].Session.ID != 10 || units[1].Session.ID != 11 {
		t.Fatalf("Group() order = %+v", units)
	}
}

func TestGroup_ExcludesCancelled(t *testing.T) {
	at := time.Date(2026, 2, 3, 15, 0, 0, 0, time.UTC)
	g := ptr(int64(5))
	sessions := []model.TrainingSession{
		session(1, 7, nil, at, model.StatusCancelled),
		session(2, 8, g, at, model.StatusCancelled),
		session(3, 9, g, at, model.StatusScheduled),
	}
	for _, filtering := range []bool{false, true} {
		units := Group(sessions, filtering, nil)
		if len(units) != 1 || units[0].Session.ID != 3 {
			t.Fatalf("Group(filtering=%v) = %+v, want only session 3", filtering, units)
		}
		if !filtering && units[0].Count != 1 {
			t.Errorf("cancelled member counted: Count = %d", units[0].Count)
		}
	}
}

func TestSessionsForDay(t *testing.T) {
	z := clock.FixedZone(-300)
	day := clock.NewDate(2026, 2, 3)
	sessions := []model.TrainingSession{
		session(1, 7, nil, time.Date(2026, 2, 3, 15, 0, 0, 0, time.UTC), model.StatusScheduled),
		// 02:00 UTC on the 4th is 21:00 on the 3rd locally.
		session(2, 7, nil, time.Date(2026, 2, 4, 2, 0, 0, 0, time.UTC), model.StatusCompleted),
		// 04:00 UTC on the 3rd is still the 2nd locally.
		session(3, 7, nil, time.Date(2026, 2, 3, 4, 0, 0, 0, time.UTC), model.StatusScheduled),
		session(4, 7, nil, time.Date(2026, 2, 3, 16, 0, 0, 0, time.UTC), model.StatusCancelled),
	}
	got := SessionsForDay(z, sessions, day)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("SessionsForDay() = %+v, want sessions 1 and 2", got)
	}
}

func TestFilterClients(t *testing.T) {
	at := time.Date(2026, 2, 3, 15, 0, 0, 0, time.UTC)
	sessions := []model.TrainingSession{
		session(1, 7, nil, at, model.StatusScheduled),
		session(2, 8, nil, at, model.StatusScheduled),
		session(3, 9, nil, at, model.StatusScheduled),
	}
	if got := FilterClients(sessions, nil); len(got) != 3 {
		t.Errorf("FilterClients(nil) = %d sessions, want 3", len(got))
	}
	got := FilterClients(sessions, []int64{9, 7})
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("FilterClients() = %+v", got)
	}
}

func TestClientNames_Fallback(t *testing.T) {
	if got := ClientNames(nil).Name(42); got != "Client #42" {
		t.Errorf("Name() = %q", got)
	}
}
