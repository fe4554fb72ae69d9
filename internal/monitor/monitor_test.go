package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powellbutte/streamwatch/internal/kvstore"
	"github.com/powellbutte/streamwatch/internal/notify"
	"github.com/powellbutte/streamwatch/internal/oracle"
	"github.com/powellbutte/streamwatch/internal/schedule"
)

// sundayMorning is inside the early-service window (Sunday 08:32).
var sundayMorning = time.Date(2025, 6, 1, 8, 32, 0, 0, time.UTC)

type fakeProber struct {
	mu         sync.Mutex
	calls      int
	status     oracle.LiveStatus
	err        error
	configured bool
}

func (f *fakeProber) Probe(context.Context) (oracle.LiveStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.status, f.err
}

func (f *fakeProber) IsConfigured() bool { return f.configured }

func (f *fakeProber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type captureEmitter struct {
	mu      sync.Mutex
	emitted []notify.Notification
}

func (e *captureEmitter) Emit(_ context.Context, n notify.Notification) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitted = append(e.emitted, n)
	return nil
}

func (e *captureEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.emitted)
}

func (e *captureEmitter) first() notify.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.emitted[0]
}

func newTestMonitor(prober *fakeProber, at time.Time) (*Monitor, *captureEmitter, *kvstore.Memory) {
	store := kvstore.NewMemory()
	emitter := &captureEmitter{}
	cfg := Config{
		// Long interval: only the initial tick and explicit wakes fire
		// during a test, keeping probe counts deterministic.
		Interval:     time.Hour,
		ProbeTimeout: time.Second,
		Windows: []schedule.Window{{
			Rule:     schedule.Rule{ID: "early", Label: "Early Service", Weekday: time.Sunday, Hour: 8, Minute: 30},
			PreRoll:  15 * time.Minute,
			PostRoll: 45 * time.Minute,
		}},
		Location: time.UTC,
	}
	m := New(cfg, prober, notify.NewDeduper(store, 15*time.Minute, nil), emitter, store, nil)
	m.now = func() time.Time { return at }
	return m, emitter, store
}

func TestLiveDetectionEmitsExactlyOnce(t *testing.T) {
	prober := &fakeProber{configured: true, status: oracle.LiveStatus{Live: true, StreamID: "abc123"}}
	m, emitter, store := newTestMonitor(prober, sundayMorning)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool { return emitter.count() == 1 }, time.Second, 5*time.Millisecond)

	n := emitter.first()
	assert.Equal(t, notify.ClassLiveDetected, n.Class)
	assert.Equal(t, "pbcc://live", n.Data.DeepLink)
	assert.Equal(t, "abc123", n.Data.StreamID)

	// Cooldown record written.
	_, ok, err := store.Get(context.Background(), "notify:last:live_detected")
	require.NoError(t, err)
	assert.True(t, ok)

	// A second cycle inside the cooldown probes again but stays silent.
	m.Wake()
	require.Eventually(t, func() bool { return prober.callCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, emitter.count())
}

func TestNoProbeOutsideWindow(t *testing.T) {
	prober := &fakeProber{configured: true, status: oracle.LiveStatus{Live: true, StreamID: "abc123"}}
	monday := time.Date(2025, 6, 2, 8, 32, 0, 0, time.UTC)
	m, emitter, _ := newTestMonitor(prober, monday)

	m.Start(context.Background())
	m.Wake()
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	assert.Zero(t, prober.callCount())
	assert.Zero(t, emitter.count())
}

func TestStartIsIdempotent(t *testing.T) {
	prober := &fakeProber{configured: true, status: oracle.LiveStatus{Live: false}}
	m, _, _ := newTestMonitor(prober, sundayMorning)

	ctx := context.Background()
	m.Start(ctx)
	m.Start(ctx) // no-op: must not create a second timer

	require.Eventually(t, func() bool { return prober.callCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, prober.callCount(), "double start ran a second initial probe")

	m.Stop()
}

func TestStopThenRestart(t *testing.T) {
	prober := &fakeProber{configured: true, status: oracle.LiveStatus{Live: false}}
	m, _, _ := newTestMonitor(prober, sundayMorning)

	ctx := context.Background()
	m.Start(ctx)
	require.Eventually(t, func() bool { return prober.callCount() == 1 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop() // stopping a stopped monitor is a no-op

	// A wake after stop must not probe.
	m.Wake()
	// drain the coalesced wake before restarting so the count stays exact
	select {
	case <-m.wake:
	default:
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, prober.callCount())

	m.Start(ctx)
	require.Eventually(t, func() bool { return prober.callCount() == 2 }, time.Second, 5*time.Millisecond)
	m.Stop()
}

func TestProbeFailureIsNonFatal(t *testing.T) {
	prober := &fakeProber{configured: true, err: errors.New("upstream 500")}
	m, emitter, _ := newTestMonitor(prober, sundayMorning)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool { return prober.callCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, emitter.count())

	// The loop keeps going: a wake drives another cycle.
	m.Wake()
	require.Eventually(t, func() bool { return prober.callCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, emitter.count())
}

func TestUnconfiguredOracleSkipsProbing(t *testing.T) {
	prober := &fakeProber{configured: false, status: oracle.LiveStatus{Live: true}}
	m, emitter, _ := newTestMonitor(prober, sundayMorning)

	m.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	assert.Zero(t, prober.callCount())
	assert.Zero(t, emitter.count())
}

func TestStatusReportsWindowAndLastCheck(t *testing.T) {
	prober := &fakeProber{configured: true, status: oracle.LiveStatus{Live: false}}
	m, _, _ := newTestMonitor(prober, sundayMorning)

	ctx := context.Background()
	s := m.Status(ctx)
	assert.False(t, s.Running)
	assert.True(t, s.InWindow)
	assert.Equal(t, "early", s.Window)
	assert.Nil(t, s.LastCheck)

	m.Start(ctx)
	require.Eventually(t, func() bool { return m.Status(ctx).LastCheck != nil }, time.Second, 5*time.Millisecond)
	s = m.Status(ctx)
	assert.True(t, s.Running)
	require.NotNil(t, s.LastCheck)
	assert.True(t, s.LastCheck.Equal(sundayMorning))
	m.Stop()
}
