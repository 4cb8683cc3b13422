package ics

import (
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"trainercal/internal/grid"
	"trainercal/internal/model"
)

const productID = "-//trainercal//calendar export//EN"

// ExportOptions tunes the iCalendar feed.
type ExportOptions struct {
	// Name is the calendar's display name.
	Name string
	// Stamp is written as DTSTAMP on every event; zero uses the current time.
	Stamp time.Time
	// Locations maps location ids to names for the LOCATION property.
	Locations map[int64]string
}

// ExportSessions renders sessions as an iCalendar feed. Cancelled sessions are
// left out, and the sessions of one group collapse into a single event the
// way the grid shows them.
func ExportSessions(sessions []model.TrainingSession, names grid.ClientNames, opts ExportOptions) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetName(opts.Name)
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	members := make(map[int64][]model.TrainingSession)
	for _, s := range sessions {
		if s.Cancelled() || s.SessionGroupID == nil {
			continue
		}
		members[*s.SessionGroupID] = append(members[*s.SessionGroupID], s)
	}

	emitted := make(map[int64]bool)
	for _, s := range sessions {
		if s.Cancelled() {
			continue
		}

		uid := "session-" + strconv.FormatInt(s.ID, 10) + "@trainercal"
		summary := names.Name(s.ClientID)
		if s.SessionGroupID != nil {
			gid := *s.SessionGroupID
			if emitted[gid] {
				continue
			}
			emitted[gid] = true
			uid = "group-" + strconv.FormatInt(gid, 10) + "@trainercal"
			summary = groupSummary(members[gid], names)
		}

		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(s.ScheduledAt.UTC())
		ev.SetEndAt(s.End().UTC())
		ev.SetSummary(summary)
		ev.SetStatus(ical.ObjectStatusConfirmed)
		if s.Notes != nil && *s.Notes != "" {
			ev.SetDescription(*s.Notes)
		}
		if s.LocationID != nil {
			if loc, ok := opts.Locations[*s.LocationID]; ok {
				ev.SetLocation(loc)
			}
		}
	}

	return cal.Serialize()
}

func groupSummary(members []model.TrainingSession, names grid.ClientNames) string {
	labels := make([]string, 0, len(members))
	for _, m := range members {
		labels = append(labels, names.Name(m.ClientID))
	}
	return strconv.Itoa(len(members)) + " clients: " + strings.Join(labels, ", ")
}
