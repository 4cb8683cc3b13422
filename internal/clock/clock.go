package clock

import "time"

// Clock supplies "now". Rendering and navigation take a Clock instead of
// calling time.Now so tests can freeze time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System is the wall clock of the running process.
var System Clock = systemClock{}

// Fixed is a Clock stuck at a single instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// Func adapts a plain function to a Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// Today returns the current local date in z.
func Today(c Clock, z Zone) Date {
	return z.DateOf(c.Now())
}
