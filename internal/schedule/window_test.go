package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sundayWindow() Window {
	return Window{
		Rule:     Rule{ID: "early", Label: "Early Service", Weekday: time.Sunday, Hour: 8, Minute: 30},
		PreRoll:  15 * time.Minute,
		PostRoll: 45 * time.Minute,
	}
}

func TestWindowBoundaries(t *testing.T) {
	w := sundayWindow()
	sunday := func(hour, min int) time.Time {
		return time.Date(2025, 6, 1, hour, min, 0, 0, time.UTC)
	}

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"one minute before pre-roll", sunday(8, 14), false},
		{"pre-roll opens", sunday(8, 15), true},
		{"service start", sunday(8, 30), true},
		{"post-roll closes", sunday(9, 15), true},
		{"one minute after post-roll", sunday(9, 16), false},
		{"saturday", sunday(8, 30).AddDate(0, 0, -1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, w.Contains(tc.at))
		})
	}
}

func TestWindowCrossesMidnight(t *testing.T) {
	// A late Saturday service with a 45-minute post-roll must still be
	// active shortly after midnight on Sunday, even though the next
	// occurrence is almost a week out.
	w := Window{
		Rule:     Rule{ID: "vigil", Weekday: time.Saturday, Hour: 23, Minute: 30},
		PreRoll:  15 * time.Minute,
		PostRoll: 45 * time.Minute,
	}

	sundayNight := time.Date(2025, 6, 1, 0, 10, 0, 0, time.UTC) // Sunday 00:10
	assert.True(t, w.Contains(sundayNight))
	assert.False(t, w.Contains(time.Date(2025, 6, 1, 0, 16, 0, 0, time.UTC)))
}

func TestActiveWindowFirstMatchWins(t *testing.T) {
	overlapping := []Window{
		{Rule: Rule{ID: "traditional", Weekday: time.Sunday, Hour: 10, Minute: 30}, PreRoll: 15 * time.Minute, PostRoll: 45 * time.Minute},
		{Rule: Rule{ID: "contemporary", Weekday: time.Sunday, Hour: 11, Minute: 30}, PreRoll: 60 * time.Minute, PostRoll: 45 * time.Minute},
	}

	// 11:00 Sunday is inside both windows; registry order decides.
	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	w, ok := ActiveWindow(now, overlapping)
	assert.True(t, ok)
	assert.Equal(t, "traditional", w.Rule.ID)

	_, ok = ActiveWindow(time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC), overlapping)
	assert.False(t, ok)
}
