package grid

import (
	"strconv"

	"trainercal/internal/clock"
	"trainercal/internal/model"
)

// ClientNames resolves client ids to display names.
type ClientNames map[int64]string

// Name falls back to "Client #id" for clients missing from the directory.
func (n ClientNames) Name(id int64) string {
	if name, ok := n[id]; ok && name != "" {
		return name
	}
	return "Client #" + strconv.FormatInt(id, 10)
}

// DisplayUnit is one event block on the grid. A grouped unit stands for every
// session sharing its SessionGroupID.
type DisplayUnit struct {
	Session model.TrainingSession
	Label   string
	// Count is the number of sessions the unit represents (1 for a single session).
	Count   int
	Grouped bool
}

// SessionsForDay returns the non-cancelled sessions whose local start date is
// date, preserving list order.
func SessionsForDay(z clock.Zone, sessions []model.TrainingSession, date clock.Date) []model.TrainingSession {
	out := make([]model.TrainingSession, 0)
	for _, s := range sessions {
		if s.Cancelled() {
			continue
		}
		if z.DateOf(s.ScheduledAt) != date {
			continue
		}
		out = append(out, s)
	}
	return out
}

// FilterClients keeps sessions whose client is in ids. An empty ids keeps everything.
func FilterClients(sessions []model.TrainingSession, ids []int64) []model.TrainingSession {
	if len(ids) == 0 {
		return sessions
	}
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]model.TrainingSession, 0, len(sessions))
	for _, s := range sessions {
		if _, ok := want[s.ClientID]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Group reduces one day's sessions to display units.
//
//   - filtering, or no group id: one unit per session, labelled with the client name.
//   - first session of a group: one unit labelled with the group's size.
//   - later sessions of an already emitted group: skipped.
//
// Output keeps first-occurrence order. Cancelled sessions are dropped even if
// the caller did not filter them out.
func Group(sessions []model.TrainingSession, filtering bool, names ClientNames) []DisplayUnit {
	counts := make(map[int64]int)
	for _, s := range sessions {
		if s.Cancelled() || s.SessionGroupID == nil {
			continue
		}
		counts[*s.SessionGroupID]++
	}

	seen := make(map[int64]bool)
	units := make([]DisplayUnit, 0, len(sessions))
	for _, s := range sessions {
		if s.Cancelled() {
			continue
		}
		if filtering || s.SessionGroupID == nil {
			units = append(units, DisplayUnit{
				Session: s,
				Label:   names.Name(s.ClientID),
				Count:   1,
			})
			continue
		}

		gid := *s.SessionGroupID
		if seen[gid] {
			continue
		}
		seen[gid] = true
		units = append(units, DisplayUnit{
			Session: s,
			Label:   groupLabel(counts[gid]),
			Count:   counts[gid],
			Grouped: true,
		})
	}
	return units
}

func groupLabel(n int) string {
	if n == 1 {
		return "1 client"
	}
	return strconv.Itoa(n) + " clients"
}
