// Package schedule provides the recurrence calculator and service-window
// evaluator for weekly live-streamed services. All calendar math is done in
// the rule's wall-clock terms via time.Date, so week rollovers behave
// correctly across DST transitions.
package schedule

import "time"

// Rule is a weekly recurrence: a weekday plus a local time of day.
// Rules are defined by configuration, not created by users.
type Rule struct {
	ID      string       `json:"id"`
	Label   string       `json:"label"`
	Weekday time.Weekday `json:"weekday"`
	Hour    int          `json:"hour"`
	Minute  int          `json:"minute"`
}

// Next returns the earliest instant at or after now that matches the rule's
// weekday, hour, and minute in now's location. A target weekday earlier in
// the week, or a same-day time that has already passed, rolls over to the
// following week.
func (r Rule) Next(now time.Time) time.Time {
	days := (int(r.Weekday) - int(now.Weekday()) + 7) % 7
	at := r.onDay(now, days)
	if at.Before(now) {
		at = r.onDay(now, days+7)
	}
	return at
}

// NextAfter returns the earliest matching instant strictly after now. Used
// when re-arming a reminder at its own firing instant, which has already
// consumed its trigger.
func (r Rule) NextAfter(now time.Time) time.Time {
	next := r.Next(now)
	if next.Equal(now) {
		return r.onDay(next, 7)
	}
	return next
}

// Prev returns the most recent instant at or before now matching the rule.
func (r Rule) Prev(now time.Time) time.Time {
	at := r.Next(now)
	if at.Equal(now) {
		return at
	}
	return r.onDay(at, -7)
}

// onDay builds the rule's wall-clock time the given number of days from t.
func (r Rule) onDay(t time.Time, days int) time.Time {
	d := t.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), r.Hour, r.Minute, 0, 0, t.Location())
}
