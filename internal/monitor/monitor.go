// Package monitor is the polling loop that decides when to ask the oracle
// whether the channel is live and when a detection becomes a notification.
//
// One monitor owns one timer. Ticks run sequentially on the loop goroutine;
// a tick that arrives while a probe is still in flight is dropped by the
// ticker, never queued. The monitor is the sole writer of cooldown state.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/powellbutte/streamwatch/internal/kvstore"
	"github.com/powellbutte/streamwatch/internal/notify"
	"github.com/powellbutte/streamwatch/internal/oracle"
	"github.com/powellbutte/streamwatch/internal/schedule"
)

// LastCheckKey is the key-value record holding the most recent probe-cycle
// completion time.
const LastCheckKey = "monitor:last_check"

// Prober is the live-status oracle boundary.
type Prober interface {
	Probe(ctx context.Context) (oracle.LiveStatus, error)
	IsConfigured() bool
}

// Config holds the monitor's tunables.
type Config struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
	Windows      []schedule.Window
	Location     *time.Location
}

// Status is a point-in-time view of the monitor for the control API.
type Status struct {
	Running   bool       `json:"running"`
	LastCheck *time.Time `json:"lastCheck,omitempty"`
	InWindow  bool       `json:"inWindow"`
	Window    string     `json:"window,omitempty"`
}

// Monitor polls the oracle inside service windows and emits deduplicated
// live-detected notifications.
type Monitor struct {
	cfg     Config
	prober  Prober
	deduper *notify.Deduper
	emitter notify.Emitter
	store   kvstore.Store
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	wake    chan struct{}
}

// New creates a stopped monitor.
func New(cfg Config, prober Prober, deduper *notify.Deduper, emitter notify.Emitter, store kvstore.Store, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Monitor{
		cfg:     cfg,
		prober:  prober,
		deduper: deduper,
		emitter: emitter,
		store:   store,
		logger:  logger,
		now:     func() time.Time { return time.Now().In(loc) },
		wake:    make(chan struct{}, 1),
	}
}

// Start launches the polling loop. Starting an already running monitor is
// a no-op: there is never a second timer.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.logger.Debug("monitor already running, start ignored")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	m.logger.Info("Monitor started", "interval", m.cfg.Interval, "windows", len(m.cfg.Windows))
	go m.run(loopCtx, m.done)
}

// Stop cancels the timer and waits for any in-flight cycle to finish.
// Stopping a stopped monitor is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.running = false
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Info("Monitor stopped")
}

// Wake requests an immediate probe cycle, e.g. when the app returns to the
// foreground or a notification permission is granted. Coalesces: repeated
// wakes before the loop services one collapse into a single cycle.
func (m *Monitor) Wake() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Status reports the monitor's current state.
func (m *Monitor) Status(ctx context.Context) Status {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	now := m.now()
	s := Status{Running: running}
	if w, ok := schedule.ActiveWindow(now, m.cfg.Windows); ok {
		s.InWindow = true
		s.Window = w.Rule.ID
	}
	if raw, ok, err := m.store.Get(ctx, LastCheckKey); err == nil && ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			s.LastCheck = &t
		}
	}
	return s
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// Initial check before the first interval elapses, matching the
	// behavior users expect when the app comes up during a service.
	m.tick(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.tick(ctx)
		case <-m.wake:
			m.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// tick runs one probe cycle. No error escapes: every failure is logged and
// treated as "not live" so the loop never terminates on a bad cycle.
func (m *Monitor) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	now := m.now()

	window, ok := schedule.ActiveWindow(now, m.cfg.Windows)
	if !ok {
		return // idle outside service windows
	}
	if !m.prober.IsConfigured() {
		m.logger.Debug("oracle not configured, skipping probe")
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	status, err := m.prober.Probe(probeCtx)
	cancel()

	switch {
	case err != nil:
		m.logger.Warn("probe failed, assuming not live", "window", window.Rule.ID, "error", err)
	case status.Live:
		m.notifyLive(ctx, status, window, now)
	default:
		m.logger.Debug("channel not live", "window", window.Rule.ID)
	}

	if err := m.store.Set(ctx, LastCheckKey, now.UTC().Format(time.RFC3339)); err != nil {
		m.logger.Warn("failed to record last check", "error", err)
	}
}

func (m *Monitor) notifyLive(ctx context.Context, status oracle.LiveStatus, window schedule.Window, now time.Time) {
	if !m.deduper.ShouldEmit(ctx, notify.ClassLiveDetected, now) {
		m.logger.Debug("live detection within cooldown, suppressed",
			"window", window.Rule.ID, "stream_id", status.StreamID)
		return
	}

	n := notify.LiveDetected(status.StreamID)
	if err := m.emitter.Emit(ctx, n); err != nil {
		m.logger.Warn("notification emission failed", "id", n.ID, "error", err)
		return
	}
	if err := m.deduper.RecordEmission(ctx, notify.ClassLiveDetected, now); err != nil {
		m.logger.Warn("failed to record emission", "class", notify.ClassLiveDetected, "error", err)
	}
	m.logger.Info("live stream detected, notification sent",
		"window", window.Rule.ID, "stream_id", status.StreamID)
}
