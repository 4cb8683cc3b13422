package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"trainercal/internal/clock"
	appLog "trainercal/internal/log"
)

const (
	defaultMaxRepeats   = 52
	defaultHorizonDays  = 365
	maxRepeatRuleLength = 512
)

// RepeatConfig controls how a repeat rule for a new booking is expanded.
type RepeatConfig struct {
	// Zone is the operating timezone; weekly/daily rules step in local wall time.
	Zone clock.Zone

	// HorizonDays bounds open-ended rules (no COUNT/UNTIL). Zero uses defaultHorizonDays.
	HorizonDays int

	// MaxRepeats caps the number of starts. Zero uses defaultMaxRepeats.
	MaxRepeats int
}

// RepeatResult lists the expanded start instants, in UTC.
type RepeatResult struct {
	Starts []time.Time
	// Truncated is true when MaxRepeats or the horizon cut the expansion short.
	Truncated bool
}

// ExpandRepeat turns an RRULE body (e.g. "FREQ=WEEKLY;COUNT=8" or
// "FREQ=WEEKLY;BYDAY=MO,WE;UNTIL=20260401T000000Z") anchored at first into
// the start instants of every booking. An empty rule yields just first.
// The first start is always first itself, counted against MaxRepeats, even
// when the rule would not produce it. A DTSTART inside rule is rejected.
func ExpandRepeat(rule string, first time.Time, cfg RepeatConfig) (RepeatResult, error) {
	var result RepeatResult

	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	if rule == "" {
		result.Starts = []time.Time{first.UTC()}
		return result, nil
	}
	if len(rule) > maxRepeatRuleLength {
		return result, errors.New("ics: repeat rule too long")
	}
	if strings.Contains(strings.ToUpper(rule), "DTSTART") {
		return result, errors.New("ics: repeat rule must not carry DTSTART")
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = defaultHorizonDays
	}
	if cfg.MaxRepeats <= 0 {
		cfg.MaxRepeats = defaultMaxRepeats
	}

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return result, fmt.Errorf("ics: parse repeat rule %q: %w", rule, err)
	}

	// Anchor in the fixed zone so BYDAY and BYHOUR refer to local wall time.
	local := cfg.Zone.WallClock(first).Truncate(time.Second)
	r.DTStart(local)

	// COUNT and UNTIL bound a rule themselves; only open-ended rules stop
	// at the horizon.
	openEnded := r.OrigOptions.Count == 0 && r.OrigOptions.Until.IsZero()
	horizon := local.AddDate(0, 0, cfg.HorizonDays)

	// The clicked slot is booked even when the rule skips its weekday.
	result.Starts = []time.Time{first.UTC()}
	var cut error
	next := r.Iterator()
	for {
		t, ok := next()
		if !ok {
			break
		}
		if t.Equal(local) {
			continue
		}
		if openEnded && t.After(horizon) {
			cut = errors.New("horizon reached")
			break
		}
		if len(result.Starts) >= cfg.MaxRepeats {
			cut = errors.New("max repeats reached")
			break
		}
		result.Starts = append(result.Starts, t.UTC())
	}

	if cut != nil {
		result.Truncated = true
		appLog.Error("ics: repeat expansion truncated", cut,
			"rule", rule,
			"cap", cfg.MaxRepeats,
			"horizon_days", cfg.HorizonDays,
			"starts", len(result.Starts),
		)
	}
	return result, nil
}
