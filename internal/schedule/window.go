package schedule

import "time"

// Window anchors a probing interval to a recurring rule: probing is
// permitted from PreRoll before each occurrence until PostRoll after it,
// inclusive at both ends.
type Window struct {
	Rule     Rule          `json:"rule"`
	PreRoll  time.Duration `json:"preRollMinutes"`
	PostRoll time.Duration `json:"postRollMinutes"`
}

// Contains reports whether now falls inside the window around either the
// previous or the next occurrence of the rule. Checking both anchors is
// required for windows that straddle midnight: a service that started late
// Saturday with a 45-minute post-roll is still active shortly after 12 AM
// Sunday, when the next occurrence is almost a week away.
func (w Window) Contains(now time.Time) bool {
	return w.around(w.Rule.Prev(now), now) || w.around(w.Rule.Next(now), now)
}

func (w Window) around(anchor, now time.Time) bool {
	return !now.Before(anchor.Add(-w.PreRoll)) && !now.After(anchor.Add(w.PostRoll))
}

// ActiveWindow returns the first window containing now, in the order given.
// Windows may overlap; first match wins so attribution is deterministic.
func ActiveWindow(now time.Time, windows []Window) (Window, bool) {
	for _, w := range windows {
		if w.Contains(now) {
			return w, true
		}
	}
	return Window{}, false
}
