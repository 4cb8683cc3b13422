package model

import (
	"fmt"
	"time"

	"trainercal/internal/clock"
)

// Status is the lifecycle state of a training session as stored by the backend.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus validates a status string coming from a request.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("model: unknown session status %q", s)
	}
}

// TrainingSession mirrors the backend's session record. The engine only reads
// it; changes go back to the backend as partial updates.
type TrainingSession struct {
	ID             int64  `json:"id"`
	TrainerID      int64  `json:"trainer_id"`
	ClientID       int64  `json:"client_id"`
	SessionGroupID *int64 `json:"session_group_id"`
	LocationID     *int64 `json:"location_id"`

	// ScheduledAt is an absolute instant; the backend stores it in UTC.
	ScheduledAt     time.Time  `json:"scheduled_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`

	Status Status  `json:"status"`
	Notes  *string `json:"notes"`

	IsPaid bool       `json:"is_paid"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

// Cancelled sessions stay in the backend but are never drawn.
func (s TrainingSession) Cancelled() bool {
	return s.Status == StatusCancelled
}

// Grouped reports whether the session belongs to a multi-client appointment.
func (s TrainingSession) Grouped() bool {
	return s.SessionGroupID != nil
}

// End returns the instant the session finishes.
func (s TrainingSession) End() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Client carries the fields the calendar needs to label a session.
type Client struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ViewMode selects how many day columns the grid shows.
type ViewMode string

const (
	ViewWeek ViewMode = "week"
	ViewDay  ViewMode = "day"
)

// ParseViewMode falls back to def for empty or unknown values.
func ParseViewMode(s string, def ViewMode) ViewMode {
	switch ViewMode(s) {
	case ViewWeek, ViewDay:
		return ViewMode(s)
	default:
		return def
	}
}

// ViewState is the ephemeral state of one rendered calendar. It is rebuilt on
// every navigation.
type ViewState struct {
	CurrentDate       clock.Date
	Mode              ViewMode
	SelectedClientIDs []int64
}

// FilteringByClient is true when the view is restricted to selected clients;
// grouped appointments are then shown per client.
func (v ViewState) FilteringByClient() bool {
	return len(v.SelectedClientIDs) > 0
}

// NewSession is the input for creating one or more sessions at a time slot.
// One client yields a single session, several yield a session group.
type NewSession struct {
	ClientIDs       []int64   `json:"client_ids"`
	LocationID      *int64    `json:"location_id,omitempty"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           *string   `json:"notes,omitempty"`
}

// Backend limits on duration_minutes.
const (
	MinDurationMinutes     = 15
	MaxDurationMinutes     = 480
	DefaultDurationMinutes = 60
)

// Validate checks a creation request before it is sent.
// PRE: none
// POST: nil if the request can be submitted, otherwise the first violation
func (n NewSession) Validate() error {
	if len(n.ClientIDs) == 0 {
		return fmt.Errorf("model: at least one client is required")
	}
	if n.ScheduledAt.IsZero() {
		return fmt.Errorf("model: scheduled_at is required")
	}
	if n.DurationMinutes < MinDurationMinutes || n.DurationMinutes > MaxDurationMinutes {
		return fmt.Errorf("model: duration_minutes must be between %d and %d, got %d",
			MinDurationMinutes, MaxDurationMinutes, n.DurationMinutes)
	}
	return nil
}
