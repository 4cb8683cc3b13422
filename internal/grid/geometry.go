package grid

import (
	"math"
	"time"

	"trainercal/internal/clock"
)

const (
	// MinutesPerDay is also the grid height in pixels.
	MinutesPerDay = 1440
	// PixelsPerMinute is the vertical scale of the grid.
	PixelsPerMinute = 1

	// CreateStep is the snap used when a new session is placed from an empty-grid click.
	CreateStep = 30
	// DragStep is the snap used when an existing session is dragged.
	DragStep = 15
)

// PositionOf returns the pixel offset from the top of a day column for t.
func PositionOf(z clock.Zone, t time.Time) int {
	return z.MinutesSinceMidnight(t) * PixelsPerMinute
}

// HeightOf returns the pixel height of a block lasting durationMinutes.
func HeightOf(durationMinutes int) int {
	return durationMinutes * PixelsPerMinute
}

// Snap rounds raw minutes to the nearest multiple of step, ties upward, and
// clamps to [0, MinutesPerDay-step] so the result stays on the grid and is
// itself a fixed point of Snap.
func Snap(rawMinutes, step int) int {
	if step <= 0 {
		step = 1
	}
	snapped := int(math.Floor(float64(rawMinutes)/float64(step)+0.5)) * step
	if snapped < 0 {
		return 0
	}
	if upper := MinutesPerDay - step; snapped > upper {
		return upper
	}
	return snapped
}

// PixelsToMinutes converts a vertical distance inside a column to minutes.
func PixelsToMinutes(px int) int {
	return px / PixelsPerMinute
}

// ClickToInstant maps an empty-grid click to the start of a new session:
// the pointer offset inside the column, snapped to CreateStep, on the
// column's date.
func ClickToInstant(z clock.Zone, date clock.Date, pointerY, columnTopY int) time.Time {
	minutes := Snap(PixelsToMinutes(pointerY-columnTopY), CreateStep)
	return z.Instant(date, minutes)
}
