// Package gate decides whether a moment falls inside a configured upload window.
package gate

import (
	"strconv"
	"strings"
	"time"

	"github.com/ghalamif/TrackGate/internal/domain"
)

// RawWindow is a window as it is stored in settings: two "HH:MM" strings.
// An empty Start or End means the window is not configured.
type RawWindow struct {
	Name  string
	Start string
	End   string
}

// Configured reports whether both endpoints are present.
func (w RawWindow) Configured() bool {
	return w.Start != "" && w.End != ""
}

// Decision is the result of evaluating a set of windows against a moment.
type Decision struct {
	Inside  bool
	Matched string
	Skipped []error
}

// MinuteOfDay converts a wall-clock time to minutes since midnight in t's location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(window, value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, &domain.MalformedWindowError{Window: window, Value: value, Reason: "expected HH:MM"}
	}
	h, err := atoiDigits(parts[0])
	if err != nil {
		return 0, &domain.MalformedWindowError{Window: window, Value: value, Reason: "hour is not an integer"}
	}
	m, err := atoiDigits(parts[1])
	if err != nil {
		return 0, &domain.MalformedWindowError{Window: window, Value: value, Reason: "minute is not an integer"}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, &domain.MalformedWindowError{Window: window, Value: value, Reason: "out of range"}
	}
	return h*60 + m, nil
}

// atoiDigits accepts only ASCII digits, so signs and spaces are rejected.
func atoiDigits(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// ParseWindow turns a configured RawWindow into a TimeWindow.
func ParseWindow(w RawWindow) (domain.TimeWindow, error) {
	start, err := ParseClock(w.Name, w.Start)
	if err != nil {
		return domain.TimeWindow{}, err
	}
	end, err := ParseClock(w.Name, w.End)
	if err != nil {
		return domain.TimeWindow{}, err
	}
	return domain.TimeWindow{Name: w.Name, StartMinuteOfDay: start, EndMinuteOfDay: end}, nil
}

// Evaluate checks now against every configured window. Unconfigured windows are
// ignored and malformed ones are skipped and reported in Decision.Skipped.
// Windows crossing midnight (start > end) never match.
func Evaluate(now time.Time, windows ...RawWindow) Decision {
	var d Decision
	minute := MinuteOfDay(now)
	for _, raw := range windows {
		if !raw.Configured() {
			continue
		}
		w, err := ParseWindow(raw)
		if err != nil {
			d.Skipped = append(d.Skipped, err)
			continue
		}
		if w.Contains(minute) {
			d.Inside = true
			d.Matched = w.Name
			return d
		}
	}
	return d
}

// InsideAnyWindow is Evaluate without the diagnostics.
func InsideAnyWindow(now time.Time, windows ...RawWindow) bool {
	return Evaluate(now, windows...).Inside
}
