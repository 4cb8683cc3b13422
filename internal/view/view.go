// Package view composes the time grid: day columns, positioned event blocks,
// the current-time line and the initial scroll offset.
package view

import (
	"sort"
	"time"

	"trainercal/internal/clock"
	"trainercal/internal/grid"
	"trainercal/internal/model"
	"trainercal/internal/nav"
)

// Input is everything one render needs. Build reads nothing else, so the
// same Input always produces the same Grid.
type Input struct {
	Zone      clock.Zone
	Clock     clock.Clock
	State     model.ViewState
	WeekStart time.Weekday
	// Sessions is the last fetch for the window; it may include other days
	// and cancelled sessions.
	Sessions []model.TrainingSession
	Names    grid.ClientNames
	// ViewportHeight is the visible grid height in pixels, used to center "now".
	ViewportHeight int
}

// Grid is the rendered projection of a view.
type Grid struct {
	Mode      model.ViewMode `json:"mode"`
	Date      clock.Date     `json:"date"`
	Today     clock.Date     `json:"today"`
	Previous  clock.Date     `json:"previous"`
	Next      clock.Date     `json:"next"`
	Filtering bool           `json:"filtering"`
	Columns   []Column       `json:"columns"`
	Hours     []HourMark     `json:"hours"`
	Height    int            `json:"height"`
	ScrollTop int            `json:"scroll_top"`
	Zone      string         `json:"zone"`
}

// Column is one calendar day.
type Column struct {
	Date    clock.Date `json:"date"`
	Weekday string     `json:"weekday"`
	IsToday bool       `json:"is_today"`
	// NowTop is set only on today's column.
	NowTop *int    `json:"now_top,omitempty"`
	Blocks []Block `json:"blocks"`
}

// Block is a positioned display unit.
type Block struct {
	SessionID       int64        `json:"session_id"`
	ClientID        int64        `json:"client_id"`
	SessionGroupID  *int64       `json:"session_group_id,omitempty"`
	Label           string       `json:"label"`
	Count           int          `json:"count"`
	Grouped         bool         `json:"grouped"`
	Status          model.Status `json:"status"`
	IsPaid          bool         `json:"is_paid"`
	Notes           string       `json:"notes,omitempty"`
	DurationMinutes int          `json:"duration_minutes"`
	Start           string       `json:"start"`
	End             string       `json:"end"`
	Top             int          `json:"top"`
	Height          int          `json:"height"`
	// Lane/Lanes split the column width between overlapping blocks.
	Lane  int `json:"lane"`
	Lanes int `json:"lanes"`
}

// HourMark is a horizontal rule with its label.
type HourMark struct {
	Label string `json:"label"`
	Top   int    `json:"top"`
}

// Build lays out the view described by in.
func Build(in Input) Grid {
	c := in.Clock
	if c == nil {
		c = clock.System
	}
	now := c.Now()
	today := in.Zone.DateOf(now)
	mode := in.State.Mode
	if mode == "" {
		mode = model.ViewWeek
	}
	date := in.State.CurrentDate
	if date.IsZero() {
		date = today
	}

	filtering := in.State.FilteringByClient()
	sessions := grid.FilterClients(in.Sessions, in.State.SelectedClientIDs)

	days := nav.VisibleDays(date, mode, in.WeekStart)
	g := Grid{
		Mode:      mode,
		Date:      date,
		Today:     today,
		Previous:  nav.Previous(date, mode),
		Next:      nav.Next(date, mode),
		Filtering: filtering,
		Columns:   make([]Column, 0, len(days)),
		Hours:     hourMarks(),
		Height:    grid.HeightOf(grid.MinutesPerDay),
		ScrollTop: ScrollTop(in.Zone, now, in.ViewportHeight),
		Zone:      in.Zone.String(),
	}

	for _, d := range days {
		col := Column{
			Date:    d,
			Weekday: d.Weekday().String(),
			IsToday: d == today,
		}
		if col.IsToday {
			top := grid.PositionOf(in.Zone, now)
			col.NowTop = &top
		}
		units := grid.Group(grid.SessionsForDay(in.Zone, sessions, d), filtering, in.Names)
		col.Blocks = layout(in.Zone, units)
		g.Columns = append(g.Columns, col)
	}
	return g
}

// ScrollTop returns the offset that vertically centers now in a viewport of
// the given height, clamped so the viewport stays inside the grid.
func ScrollTop(z clock.Zone, now time.Time, viewportHeight int) int {
	full := grid.HeightOf(grid.MinutesPerDay)
	if viewportHeight <= 0 || viewportHeight >= full {
		return 0
	}
	top := grid.PositionOf(z, now) - viewportHeight/2
	if top < 0 {
		return 0
	}
	if top > full-viewportHeight {
		return full - viewportHeight
	}
	return top
}

func hourMarks() []HourMark {
	marks := make([]HourMark, 0, 24)
	for h := 0; h < 24; h++ {
		marks = append(marks, HourMark{
			Label: clock.FormatHHMM(h * 60),
			Top:   grid.HeightOf(h * 60),
		})
	}
	return marks
}

// layout positions units and assigns lanes so overlapping blocks sit side by
// side. Blocks keep the grouper's order.
func layout(z clock.Zone, units []grid.DisplayUnit) []Block {
	blocks := make([]Block, len(units))
	for i, u := range units {
		s := u.Session
		top := grid.PositionOf(z, s.ScheduledAt)
		b := Block{
			SessionID:       s.ID,
			ClientID:        s.ClientID,
			SessionGroupID:  s.SessionGroupID,
			Label:           u.Label,
			Count:           u.Count,
			Grouped:         u.Grouped,
			Status:          s.Status,
			IsPaid:          s.IsPaid,
			DurationMinutes: s.DurationMinutes,
			Start:           clock.FormatHHMM(top),
			End:             clock.FormatHHMM(top + s.DurationMinutes),
			Top:             top,
			Height:          grid.HeightOf(s.DurationMinutes),
			Lanes:           1,
		}
		if s.Notes != nil {
			b.Notes = *s.Notes
		}
		blocks[i] = b
	}
	assignLanes(blocks)
	return blocks
}

// assignLanes runs a sweep over blocks by start: each cluster of transitively
// overlapping blocks shares one lane count, and every block takes the lowest
// lane free at its start.
func assignLanes(blocks []Block) {
	order := make([]int, len(blocks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return blocks[order[a]].Top < blocks[order[b]].Top
	})

	var cluster []int
	var laneEnds []int
	clusterEnd := -1

	flush := func() {
		for _, idx := range cluster {
			blocks[idx].Lanes = len(laneEnds)
		}
		cluster = cluster[:0]
		laneEnds = laneEnds[:0]
	}

	for _, idx := range order {
		b := &blocks[idx]
		if b.Top >= clusterEnd && len(cluster) > 0 {
			flush()
		}
		lane := -1
		for l, end := range laneEnds {
			if end <= b.Top {
				lane = l
				break
			}
		}
		bottom := b.Top + b.Height
		if lane == -1 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, bottom)
		} else {
			laneEnds[lane] = bottom
		}
		b.Lane = lane
		cluster = append(cluster, idx)
		clusterEnd = max(clusterEnd, bottom)
	}
	if len(cluster) > 0 {
		flush()
	}
}

// Column returns the visible column for d.
func (g Grid) Column(d clock.Date) (Column, bool) {
	for _, c := range g.Columns {
		if c.Date == d {
			return c, true
		}
	}
	return Column{}, false
}

// BlockCount is the number of blocks across all columns.
func (g Grid) BlockCount() int {
	n := 0
	for _, c := range g.Columns {
		n += len(c.Blocks)
	}
	return n
}
