// Package drag implements the drag-to-reschedule protocol of the time grid:
// a grab builds a payload, the payload travels as JSON text, and a drop over
// a day column turns it into a new start time snapped to DragStep.
package drag

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trainercal/internal/clock"
	"trainercal/internal/grid"
	"trainercal/internal/model"
)

// ErrMalformedPayload is returned for transport data that is not a usable payload.
var ErrMalformedPayload = errors.New("drag: malformed payload")

// Payload is the in-flight state of one drag gesture. The JSON shape is shared
// with the browser side and must not change.
type Payload struct {
	SessionID int64 `json:"sessionId"`
	// DurationMinutes is carried so the target can size a preview.
	DurationMinutes int `json:"duration"`
	// GrabOffsetMinutes is the distance from the block's top to the grab point.
	GrabOffsetMinutes int `json:"offsetMinutes"`
}

// Target is the day column under the pointer at drop time.
type Target struct {
	Date clock.Date
	// TopY is the column's top edge in the same coordinate space as the pointer.
	TopY int
}

// Request asks for a session to move. Nothing but the start changes.
type Request struct {
	SessionID int64     `json:"session_id"`
	NewStart  time.Time `json:"new_start"`
}

// Grab captures the payload for a drag that starts pointerOffsetPx below the
// rendered top of the session's block.
func Grab(s model.TrainingSession, pointerOffsetPx int) Payload {
	offset := grid.PixelsToMinutes(pointerOffsetPx)
	if offset < 0 {
		offset = 0
	}
	return Payload{
		SessionID:         s.ID,
		DurationMinutes:   s.DurationMinutes,
		GrabOffsetMinutes: offset,
	}
}

// Encode serializes a payload for the drag transport.
func Encode(p Payload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("drag: encode payload: %w", err)
	}
	return string(b), nil
}

// Decode parses transport data. Every field must be present; ids and
// durations must be positive and the offset non-negative.
func Decode(data string) (Payload, error) {
	var raw struct {
		SessionID *int64 `json:"sessionId"`
		Duration  *int   `json:"duration"`
		Offset    *int   `json:"offsetMinutes"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	switch {
	case raw.SessionID == nil || raw.Duration == nil || raw.Offset == nil:
		return Payload{}, fmt.Errorf("%w: missing field", ErrMalformedPayload)
	case *raw.SessionID <= 0:
		return Payload{}, fmt.Errorf("%w: sessionId %d", ErrMalformedPayload, *raw.SessionID)
	case *raw.Duration <= 0:
		return Payload{}, fmt.Errorf("%w: duration %d", ErrMalformedPayload, *raw.Duration)
	case *raw.Offset < 0:
		return Payload{}, fmt.Errorf("%w: offsetMinutes %d", ErrMalformedPayload, *raw.Offset)
	}
	return Payload{
		SessionID:         *raw.SessionID,
		DurationMinutes:   *raw.Duration,
		GrabOffsetMinutes: *raw.Offset,
	}, nil
}

// DropMinutes returns the snapped local minute the block's top lands on.
func DropMinutes(p Payload, t Target, pointerY int) int {
	rawTop := grid.PixelsToMinutes(pointerY-t.TopY) - p.GrabOffsetMinutes
	return grid.Snap(rawTop, grid.DragStep)
}

// DropStart returns the new start instant for a drop at pointerY over t.
func DropStart(z clock.Zone, p Payload, t Target, pointerY int) time.Time {
	return z.Instant(t.Date, DropMinutes(p, t, pointerY))
}
