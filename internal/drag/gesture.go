package drag

import (
	"errors"

	"trainercal/internal/clock"
	appLog "trainercal/internal/log"
	"trainercal/internal/model"
)

// State of a Gesture.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Gesture tracks one view's drag interaction: idle → dragging → idle.
// It holds no session data beyond the active payload and never touches
// the session list.
type Gesture struct {
	zone    clock.Zone
	state   State
	payload string
}

func NewGesture(z clock.Zone) *Gesture {
	return &Gesture{zone: z}
}

func (g *Gesture) State() State { return g.state }

// Start grabs s and returns the encoded payload to hand to the transport.
func (g *Gesture) Start(s model.TrainingSession, pointerOffsetPx int) (string, error) {
	data, err := Encode(Grab(s, pointerOffsetPx))
	if err != nil {
		return "", err
	}
	g.state = Dragging
	g.payload = data
	return data, nil
}

// Hover reports whether a drop is allowed over a column. Hovering never
// changes state.
func (g *Gesture) Hover() bool {
	return g.state == Dragging
}

// Drop resolves transport data dropped over t at pointerY. Data from the
// transport wins over the payload captured by Start, since drops may come
// from another view. A malformed payload is logged and yields ok=false.
// Either way the gesture returns to idle.
func (g *Gesture) Drop(data string, t Target, pointerY int) (Request, bool) {
	defer g.reset()

	if data == "" {
		data = g.payload
	}
	p, err := Decode(data)
	if err != nil {
		appLog.Error("drag: drop ignored", err, "date", t.Date, "pointer_y", pointerY)
		return Request{}, false
	}
	return Request{
		SessionID: p.SessionID,
		NewStart:  DropStart(g.zone, p, t, pointerY),
	}, true
}

// Cancel abandons the gesture without side effects.
func (g *Gesture) Cancel() {
	g.reset()
}

func (g *Gesture) reset() {
	g.state = Idle
	g.payload = ""
}

// ErrStaleSession marks a drop whose session is no longer in the loaded window.
var ErrStaleSession = errors.New("drag: session not in current window")

// Resolve checks a request against the sessions currently on screen. A drop
// for a session that vanished (deleted concurrently) is stale.
func Resolve(req Request, sessions []model.TrainingSession) (model.TrainingSession, error) {
	for _, s := range sessions {
		if s.ID == req.SessionID && !s.Cancelled() {
			return s, nil
		}
	}
	return model.TrainingSession{}, ErrStaleSession
}
