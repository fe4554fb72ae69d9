package playback

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const externalURL = "https://www.youtube.com/channel/UCtest/live"

func failure() FailureSignal {
	return FailureSignal{Message: "embed failed to load", Code: "ERR_EMBED"}
}

func TestThreeConsecutiveFailuresAreTerminal(t *testing.T) {
	m := New(nil, externalURL, nil)

	m.Loading()
	m.Fail(failure())
	assert.Equal(t, StateRetrying, m.Snapshot().State)
	m.Fail(failure())
	assert.Equal(t, StateRetrying, m.Snapshot().State)
	m.Fail(failure())

	s := m.Snapshot()
	assert.Equal(t, StateTerminal, s.State)
	assert.Equal(t, 3, s.Attempt)
	assert.Equal(t, "embed failed to load", s.LastError)
	assert.Equal(t, externalURL, s.ExternalURL, "terminal state must offer the escape hatch")

	// Further failures once terminal change nothing.
	m.Fail(failure())
	assert.Equal(t, 3, m.Snapshot().Attempt)
}

func TestBackoffElapsedTriggersReload(t *testing.T) {
	var reloads atomic.Int32
	m := NewWithPolicy(3, []time.Duration{time.Millisecond, time.Millisecond}, func() {
		reloads.Add(1)
	}, externalURL, nil)

	m.Loading()
	m.Fail(failure())

	require.Eventually(t, func() bool { return reloads.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, StateLoading, m.Snapshot().State)
	assert.Equal(t, 1, m.Snapshot().Attempt)
}

func TestSuccessResetsAttempts(t *testing.T) {
	m := New(nil, externalURL, nil)

	m.Loading()
	m.Fail(failure())
	m.Fail(failure())
	m.Loaded()

	s := m.Snapshot()
	assert.Equal(t, StateIdle, s.State)
	assert.Zero(t, s.Attempt)
	assert.Empty(t, s.LastError)

	// The budget is fresh again: two more failures do not reach terminal.
	m.Fail(failure())
	m.Fail(failure())
	assert.Equal(t, StateRetrying, m.Snapshot().State)
}

func TestManualRetryResetsFromTerminal(t *testing.T) {
	var reloads atomic.Int32
	m := NewWithPolicy(3, defaultBackoff, func() { reloads.Add(1) }, externalURL, nil)

	m.Fail(failure())
	m.Fail(failure())
	m.Fail(failure())
	require.Equal(t, StateTerminal, m.Snapshot().State)

	m.ManualRetry()
	s := m.Snapshot()
	assert.Equal(t, StateLoading, s.State)
	assert.Zero(t, s.Attempt)
	assert.Equal(t, int32(1), reloads.Load(), "manual retry starts a load immediately")
}

func TestManualRetryOverridesPendingBackoff(t *testing.T) {
	var reloads atomic.Int32
	m := NewWithPolicy(3, []time.Duration{time.Hour}, func() { reloads.Add(1) }, externalURL, nil)

	m.Fail(failure())
	require.Equal(t, StateRetrying, m.Snapshot().State)

	m.ManualRetry()
	assert.Zero(t, m.Snapshot().Attempt)
	assert.Equal(t, int32(1), reloads.Load())

	// The superseded backoff timer must never fire a second reload.
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), reloads.Load())
}

func TestCloseCancelsPendingRetry(t *testing.T) {
	var reloads atomic.Int32
	m := NewWithPolicy(3, []time.Duration{time.Millisecond}, func() { reloads.Add(1) }, externalURL, nil)

	m.Fail(failure())
	m.Close()

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, reloads.Load())
	assert.Equal(t, StateIdle, m.Snapshot().State)
}
