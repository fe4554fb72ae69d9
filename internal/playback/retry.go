// Package playback governs reload attempts for the embedded live player.
// It is independent of the polling loop: failures come from the rendering
// surface, and the machine decides whether to schedule another load or to
// surface a terminal, user-actionable error.
package playback

import (
	"log/slog"
	"sync"
	"time"
)

// State of the retry machine.
type State string

const (
	StateIdle     State = "idle"     // no load in progress
	StateLoading  State = "loading"  // surface is loading the embed
	StateRetrying State = "retrying" // waiting out a backoff delay
	StateTerminal State = "terminal" // automatic recovery exhausted
)

// Defaults per the player's tuning: three quick attempts before giving up.
var defaultBackoff = []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}

const defaultMaxAttempts = 3

// FailureSignal is the payload the rendering surface posts when an embed
// load fails.
type FailureSignal struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Snapshot is a point-in-time view of the machine for the control API.
type Snapshot struct {
	State       State  `json:"state"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"maxAttempts"`
	LastError   string `json:"lastError,omitempty"`
	// ExternalURL is the escape hatch offered alongside manual retry once
	// the machine is terminal.
	ExternalURL string `json:"externalUrl,omitempty"`
}

// Machine is the per-playback-session retry state machine. UI-driven and
// single-session: one machine per active player, discarded with it.
type Machine struct {
	maxAttempts int
	backoff     []time.Duration
	reload      func() // asks the surface to load the embed again
	externalURL string
	logger      *slog.Logger

	mu       sync.Mutex
	state    State
	attempt  int
	lastErr  string
	timer    *time.Timer
	gen      int // invalidates backoff timers from superseded transitions
}

// New creates an idle machine with the default attempt budget and backoff
// schedule. reload is invoked (on a timer goroutine) when a backoff delay
// elapses; externalURL is surfaced in the terminal snapshot.
func New(reload func(), externalURL string, logger *slog.Logger) *Machine {
	return NewWithPolicy(defaultMaxAttempts, defaultBackoff, reload, externalURL, logger)
}

// NewWithPolicy creates a machine with an explicit attempt budget and
// backoff schedule.
func NewWithPolicy(maxAttempts int, backoff []time.Duration, reload func(), externalURL string, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	if reload == nil {
		reload = func() {}
	}
	return &Machine{
		maxAttempts: maxAttempts,
		backoff:     backoff,
		reload:      reload,
		externalURL: externalURL,
		logger:      logger,
		state:       StateIdle,
	}
}

// Loading records that the surface started a load.
func (m *Machine) Loading() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelTimerLocked()
	m.state = StateLoading
}

// Fail advances the machine on a load failure. The first failures schedule
// a reload after the corresponding backoff delay; the third consecutive
// failure is terminal and requires a user decision.
func (m *Machine) Fail(sig FailureSignal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateTerminal {
		return
	}
	m.cancelTimerLocked()
	m.lastErr = sig.Message
	m.attempt++

	if m.attempt >= m.maxAttempts {
		m.state = StateTerminal
		m.logger.Warn("playback retries exhausted",
			"attempts", m.attempt, "code", sig.Code, "error", sig.Message)
		return
	}

	delay := m.backoff[min(m.attempt-1, len(m.backoff)-1)]
	m.state = StateRetrying
	m.logger.Info("playback load failed, retry scheduled",
		"attempt", m.attempt, "delay", delay, "code", sig.Code)

	gen := m.gen
	m.timer = time.AfterFunc(delay, func() {
		if m.beginRetry(gen) {
			m.reload()
		}
	})
}

// Loaded records a successful load. Success at any state resets the
// attempt counter.
func (m *Machine) Loaded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelTimerLocked()
	m.state = StateIdle
	m.attempt = 0
	m.lastErr = ""
}

// ManualRetry is the user-initiated recovery action. User intent overrides
// automatic backoff: the counter resets regardless of state and a load
// starts immediately.
func (m *Machine) ManualRetry() {
	m.mu.Lock()
	m.cancelTimerLocked()
	m.state = StateLoading
	m.attempt = 0
	m.lastErr = ""
	m.mu.Unlock()

	m.reload()
}

// Close cancels any pending backoff timer. Called when playback is torn
// down; the monitor's lifecycle never reaches in here.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelTimerLocked()
	m.state = StateIdle
}

// Snapshot returns the current machine state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		State:       m.state,
		Attempt:     m.attempt,
		MaxAttempts: m.maxAttempts,
		LastError:   m.lastErr,
	}
	if m.state == StateTerminal {
		s.ExternalURL = m.externalURL
	}
	return s
}

// beginRetry transitions Retrying → Loading when the backoff elapses.
// Reports whether the reload callback should run: a stale generation means
// something else (success, manual retry, teardown) superseded this timer.
func (m *Machine) beginRetry(gen int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.state != StateRetrying {
		return false
	}
	m.state = StateLoading
	return true
}

func (m *Machine) cancelTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.gen++
}
