package web

import (
	"net/http"
	"time"

	"trainercal/internal/calendar"
	"trainercal/internal/clock"
	appLog "trainercal/internal/log"
	"trainercal/internal/model"
	"trainercal/internal/nav"
	"trainercal/internal/view"
)

// gridResponse is the JSON shape of /api/grid.
type gridResponse struct {
	view.Grid
	Window nav.Window `json:"window"`
}

// handleGrid returns the laid-out grid for the requested view.
//
// GET /api/grid?date=2026-02-03&view=week&clients=7,9
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	state, err := s.viewState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.svc.Load(r.Context(), state)
	if err != nil {
		appLog.Error("api grid: load failed", err, "date", state.CurrentDate, "view", state.Mode)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gridResponse{Grid: snap.Grid, Window: snap.Window})
}

type navigateResponse struct {
	Date   clock.Date     `json:"date"`
	View   model.ViewMode `json:"view"`
	Window nav.Window     `json:"window"`
}

// handleNavigate pages the view.
//
// GET /api/navigate?date=2026-02-03&view=week&dir=prev|next|today
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	state, err := s.viewState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, win, err := s.svc.Navigate(state, r.URL.Query().Get("dir"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, navigateResponse{Date: d, View: state.Mode, Window: win})
}

type dropRequest struct {
	Payload    string     `json:"payload"`
	Date       clock.Date `json:"date"`
	PointerY   int        `json:"pointer_y"`
	ColumnTopY int        `json:"column_top_y"`
}

// handleDrop applies a drag-and-drop reschedule. Unusable drops answer
// 200 with applied=false; the grid simply stays as it is.
func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := decodeJSON(w, r, &req); err != nil {
		appLog.Error("api drop: bad request body", err)
		writeJSON(w, http.StatusOK, calendar.DropResult{Reason: "malformed request"})
		return
	}
	if req.Date.IsZero() {
		writeJSON(w, http.StatusOK, calendar.DropResult{Reason: "missing date"})
		return
	}
	res, err := s.svc.Drop(r.Context(), calendar.DropInput{
		Payload:    req.Payload,
		Date:       req.Date,
		PointerY:   req.PointerY,
		ColumnTopY: req.ColumnTopY,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type clickRequest struct {
	Date            clock.Date `json:"date"`
	PointerY        int        `json:"pointer_y"`
	ColumnTopY      int        `json:"column_top_y"`
	ClientIDs       []int64    `json:"client_ids"`
	LocationID      *int64     `json:"location_id,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Notes           *string    `json:"notes,omitempty"`
	Repeat          string     `json:"repeat,omitempty"`
}

// handleClick books the clicked slot. Without client_ids it only reports
// the snapped start so the page can prefill its booking form.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	in := calendar.ClickInput{
		Date:            req.Date,
		PointerY:        req.PointerY,
		ColumnTopY:      req.ColumnTopY,
		ClientIDs:       req.ClientIDs,
		LocationID:      req.LocationID,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		Repeat:          req.Repeat,
	}
	if len(in.ClientIDs) == 0 {
		start := s.svc.SlotStart(in)
		writeJSON(w, http.StatusOK, map[string]any{
			"start": start,
			"local": s.svc.Zone().WallClock(start).Format(time.RFC3339),
		})
		return
	}

	res, err := s.svc.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type statusRequest struct {
	Status string `json:"status"`
}

// handleStatus changes a session's status.
//
// PUT /api/sessions/{id}/status {"status":"completed"}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.svc.SetStatus(r.Context(), pathID(r), status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handlePayment toggles a session's paid flag.
func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.TogglePayment(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleExport serves the fetch window around the requested date as an
// iCalendar feed.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	state, err := s.viewState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := s.svc.Export(r.Context(), state)
	if err != nil {
		appLog.Error("calendar export failed", err)
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trainercal.ics"`)
	_, _ = w.Write([]byte(body))
}
