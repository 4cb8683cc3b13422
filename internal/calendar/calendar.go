// Package calendar ties the grid engine to the session backend: it fetches
// the window around the viewed date, builds the grid, and turns clicks, drops
// and status changes into backend mutations.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trainercal/internal/api"
	"trainercal/internal/clock"
	"trainercal/internal/drag"
	"trainercal/internal/grid"
	"trainercal/internal/ics"
	appLog "trainercal/internal/log"
	"trainercal/internal/model"
	"trainercal/internal/nav"
	"trainercal/internal/view"
)

// ErrInvalidRequest wraps input that was rejected before reaching the backend.
var ErrInvalidRequest = errors.New("calendar: invalid request")

// Source is the session backend. *api.Client implements it.
type Source interface {
	ListSessions(ctx context.Context, q api.ListQuery) ([]model.TrainingSession, error)
	ListClients(ctx context.Context) ([]model.Client, error)
	Reschedule(ctx context.Context, sessionID int64, start time.Time) (model.TrainingSession, error)
	Create(ctx context.Context, n model.NewSession) ([]model.TrainingSession, error)
	SetStatus(ctx context.Context, sessionID int64, status model.Status) (model.TrainingSession, error)
	TogglePayment(ctx context.Context, sessionID int64) (model.TrainingSession, error)
}

// Options configures a Service.
type Options struct {
	Zone           clock.Zone
	Clock          clock.Clock
	WeekStart      time.Weekday
	DefaultMode    model.ViewMode
	ViewportHeight int
	Repeat         ics.RepeatConfig
	// Locations names location ids for the iCalendar export.
	Locations map[int64]string
	// CalendarName is the exported calendar's display name.
	CalendarName string
}

// Service is safe for concurrent use as long as its Source is.
type Service struct {
	src  Source
	opts Options
}

// New returns a Service reading from src.
func New(src Source, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.System
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = model.ViewWeek
	}
	opts.Repeat.Zone = opts.Zone
	return &Service{src: src, opts: opts}
}

// Zone returns the operating timezone.
func (s *Service) Zone() clock.Zone { return s.opts.Zone }

// Today returns the current local date.
func (s *Service) Today() clock.Date { return nav.Today(s.opts.Clock, s.opts.Zone) }

// Snapshot is one loaded view: the built grid plus the data behind it.
type Snapshot struct {
	Grid     view.Grid
	Window   nav.Window
	Sessions []model.TrainingSession
	Names    grid.ClientNames
}

// normalize fills the defaults of a view state coming from a request.
func (s *Service) normalize(state model.ViewState) model.ViewState {
	if state.Mode == "" {
		state.Mode = s.opts.DefaultMode
	}
	if state.CurrentDate.IsZero() {
		state.CurrentDate = s.Today()
	}
	return state
}

// Load fetches the window around state's date and builds its grid.
func (s *Service) Load(ctx context.Context, state model.ViewState) (Snapshot, error) {
	state = s.normalize(state)

	win := nav.FetchWindow(s.opts.Zone, state.CurrentDate)
	sessions, err := s.fetch(ctx, win, state.SelectedClientIDs)
	if err != nil {
		return Snapshot{}, err
	}
	names := s.names(ctx)

	g := view.Build(view.Input{
		Zone:           s.opts.Zone,
		Clock:          s.opts.Clock,
		State:          state,
		WeekStart:      s.opts.WeekStart,
		Sessions:       sessions,
		Names:          names,
		ViewportHeight: s.opts.ViewportHeight,
	})
	return Snapshot{Grid: g, Window: win, Sessions: sessions, Names: names}, nil
}

// Empty builds state's grid without sessions, for pages rendered while the
// backend is unreachable.
func (s *Service) Empty(state model.ViewState) view.Grid {
	return view.Build(view.Input{
		Zone:           s.opts.Zone,
		Clock:          s.opts.Clock,
		State:          s.normalize(state),
		WeekStart:      s.opts.WeekStart,
		ViewportHeight: s.opts.ViewportHeight,
	})
}

// fetch lists the sessions of win. A single selected client is filtered by
// the backend; several are filtered when the grid is built.
func (s *Service) fetch(ctx context.Context, win nav.Window, clientIDs []int64) ([]model.TrainingSession, error) {
	q := api.ListQuery{Start: win.Start, End: win.End}
	if len(clientIDs) == 1 {
		id := clientIDs[0]
		q.ClientID = &id
	}
	sessions, err := s.src.ListSessions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("calendar: list sessions: %w", err)
	}
	return sessions, nil
}

// names resolves client labels. Without them blocks fall back to
// "Client #id", so a failure only degrades labels.
func (s *Service) names(ctx context.Context) grid.ClientNames {
	clients, err := s.src.ListClients(ctx)
	if err != nil {
		appLog.Error("calendar: list clients failed; using fallback labels", err)
		return grid.ClientNames{}
	}
	names := make(grid.ClientNames, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	return names
}

// Navigate pages state in dir ("prev", "next" or "today") and returns the
// new date with the window that will be fetched for it.
func (s *Service) Navigate(state model.ViewState, dir string) (clock.Date, nav.Window, error) {
	state = s.normalize(state)
	var d clock.Date
	switch dir {
	case "prev":
		d = nav.Previous(state.CurrentDate, state.Mode)
	case "next":
		d = nav.Next(state.CurrentDate, state.Mode)
	case "today":
		d = s.Today()
	default:
		return clock.Date{}, nav.Window{}, fmt.Errorf("%w: unknown direction %q", ErrInvalidRequest, dir)
	}
	return d, nav.FetchWindow(s.opts.Zone, d), nil
}

// Warm loads today's default view so the backend cache is hot.
func (s *Service) Warm(ctx context.Context) error {
	snap, err := s.Load(ctx, model.ViewState{})
	if err != nil {
		return err
	}
	appLog.Debug("calendar: window warmed",
		"start", snap.Window.Start.Format(time.RFC3339),
		"end", snap.Window.End.Format(time.RFC3339),
		"sessions", len(snap.Sessions),
	)
	return nil
}

// DropInput is a drop over a day column.
type DropInput struct {
	// Payload is the drag transport text; see drag.Payload.
	Payload    string
	Date       clock.Date
	PointerY   int
	ColumnTopY int
}

// DropResult reports what a drop did. Applied is false when the drop was a
// no-op (malformed payload or stale session).
type DropResult struct {
	Applied  bool                    `json:"applied"`
	Reason   string                  `json:"reason,omitempty"`
	NewStart time.Time               `json:"new_start,omitempty"`
	Sessions []model.TrainingSession `json:"sessions,omitempty"`
}

// Drop reschedules the dragged session to where it was dropped. Every
// member of a session group moves with it, so the group keeps one start.
// Backend failures are returned; nothing is rolled back. When a group move
// fails part way, the result lists the members that did move and the error
// says how many.
func (s *Service) Drop(ctx context.Context, in DropInput) (DropResult, error) {
	g := drag.NewGesture(s.opts.Zone)
	req, ok := view.Drop(g, in.Payload, in.Date, in.PointerY, in.ColumnTopY)
	if !ok {
		return DropResult{Reason: "malformed payload"}, nil
	}

	// The session is looked up in the same window the grid was built from.
	win := nav.FetchWindow(s.opts.Zone, in.Date)
	sessions, err := s.fetch(ctx, win, nil)
	if err != nil {
		return DropResult{}, err
	}
	cur, err := drag.Resolve(req, sessions)
	if err != nil {
		appLog.Info("calendar: drop ignored for stale session", "session_id", req.SessionID)
		return DropResult{Reason: "session not found"}, nil
	}

	ids := []int64{cur.ID}
	if cur.Grouped() {
		ids = groupMembers(sessions, *cur.SessionGroupID)
	}

	res := DropResult{Applied: true, NewStart: req.NewStart}
	for _, id := range ids {
		updated, err := s.src.Reschedule(ctx, id, req.NewStart)
		if err != nil {
			appLog.Error("calendar: reschedule failed", err,
				"session_id", id,
				"new_start", req.NewStart.Format(time.RFC3339),
				"moved", len(res.Sessions),
				"members", len(ids),
			)
			// Members already moved stay moved; res lists them.
			res.Applied = false
			if len(ids) > 1 {
				return res, fmt.Errorf("calendar: reschedule session %d (%d of %d group members already moved): %w",
					id, len(res.Sessions), len(ids), err)
			}
			return res, fmt.Errorf("calendar: reschedule session %d: %w", id, err)
		}
		res.Sessions = append(res.Sessions, updated)
	}
	appLog.Info("calendar: session rescheduled",
		"session_id", cur.ID,
		"sessions", len(ids),
		"new_start", req.NewStart.Format(time.RFC3339),
	)
	return res, nil
}

func groupMembers(sessions []model.TrainingSession, groupID int64) []int64 {
	var ids []int64
	for _, s := range sessions {
		if s.Cancelled() || s.SessionGroupID == nil || *s.SessionGroupID != groupID {
			continue
		}
		ids = append(ids, s.ID)
	}
	return ids
}

// ClickInput is a click on empty grid space plus the booking form that
// follows it.
type ClickInput struct {
	Date            clock.Date
	PointerY        int
	ColumnTopY      int
	ClientIDs       []int64
	LocationID      *int64
	DurationMinutes int
	Notes           *string
	// Repeat is an optional RRULE body such as "FREQ=WEEKLY;COUNT=8".
	Repeat string
}

// CreateResult lists the sessions a click created.
type CreateResult struct {
	Start     time.Time               `json:"start"`
	Sessions  []model.TrainingSession `json:"sessions"`
	Truncated bool                    `json:"truncated,omitempty"`
}

// SlotStart returns the instant a click on empty grid space stands for.
func (s *Service) SlotStart(in ClickInput) time.Time {
	return view.Click(s.opts.Zone, in.Date, in.PointerY, in.ColumnTopY)
}

// Create books the clicked slot for the selected clients, once or per
// repeat occurrence. One client creates single sessions, several create a
// session group. Creation stops at the first backend failure; sessions
// already created stay.
func (s *Service) Create(ctx context.Context, in ClickInput) (CreateResult, error) {
	start := s.SlotStart(in)
	if in.DurationMinutes == 0 {
		in.DurationMinutes = model.DefaultDurationMinutes
	}

	first := model.NewSession{
		ClientIDs:       in.ClientIDs,
		LocationID:      in.LocationID,
		ScheduledAt:     start,
		DurationMinutes: in.DurationMinutes,
		Notes:           in.Notes,
	}
	if err := first.Validate(); err != nil {
		return CreateResult{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	rep, err := ics.ExpandRepeat(in.Repeat, start, s.opts.Repeat)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	res := CreateResult{Start: start, Truncated: rep.Truncated, Sessions: []model.TrainingSession{}}
	for _, at := range rep.Starts {
		n := first
		n.ScheduledAt = at
		created, err := s.src.Create(ctx, n)
		if err != nil {
			appLog.Error("calendar: create failed", err,
				"scheduled_at", at.Format(time.RFC3339),
				"clients", len(n.ClientIDs),
				"created", len(res.Sessions),
			)
			return res, fmt.Errorf("calendar: create session at %s: %w", at.Format(time.RFC3339), err)
		}
		res.Sessions = append(res.Sessions, created...)
	}
	appLog.Info("calendar: sessions created",
		"start", start.Format(time.RFC3339),
		"occurrences", len(rep.Starts),
		"sessions", len(res.Sessions),
	)
	return res, nil
}

// SetStatus changes one session's status.
func (s *Service) SetStatus(ctx context.Context, sessionID int64, status model.Status) (model.TrainingSession, error) {
	updated, err := s.src.SetStatus(ctx, sessionID, status)
	if err != nil {
		appLog.Error("calendar: status change failed", err, "session_id", sessionID, "status", status)
		return model.TrainingSession{}, fmt.Errorf("calendar: set status of session %d: %w", sessionID, err)
	}
	return updated, nil
}

// TogglePayment flips a session's paid flag.
func (s *Service) TogglePayment(ctx context.Context, sessionID int64) (model.TrainingSession, error) {
	updated, err := s.src.TogglePayment(ctx, sessionID)
	if err != nil {
		appLog.Error("calendar: payment toggle failed", err, "session_id", sessionID)
		return model.TrainingSession{}, fmt.Errorf("calendar: toggle payment of session %d: %w", sessionID, err)
	}
	return updated, nil
}

// Export renders the window around state's date as an iCalendar feed.
func (s *Service) Export(ctx context.Context, state model.ViewState) (string, error) {
	state = s.normalize(state)
	win := nav.FetchWindow(s.opts.Zone, state.CurrentDate)
	sessions, err := s.fetch(ctx, win, state.SelectedClientIDs)
	if err != nil {
		return "", err
	}
	sessions = grid.FilterClients(sessions, state.SelectedClientIDs)
	return ics.ExportSessions(sessions, s.names(ctx), ics.ExportOptions{
		Name:      s.opts.CalendarName,
		Stamp:     s.opts.Clock.Now(),
		Locations: s.opts.Locations,
	}), nil
}
