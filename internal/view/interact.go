package view

import (
	"time"

	"trainercal/internal/clock"
	"trainercal/internal/drag"
	"trainercal/internal/grid"
)

// Click maps a click on an empty part of column d to the start of a new
// session, snapped to grid.CreateStep.
func Click(z clock.Zone, d clock.Date, pointerY, columnTopY int) time.Time {
	return grid.ClickToInstant(z, d, pointerY, columnTopY)
}

// Drop runs a drop through the gesture and returns the reschedule request.
// ok is false when the payload was unusable; the caller must then leave
// everything as it is.
func Drop(g *drag.Gesture, data string, d clock.Date, pointerY, columnTopY int) (drag.Request, bool) {
	return g.Drop(data, drag.Target{Date: d, TopY: columnTopY}, pointerY)
}
