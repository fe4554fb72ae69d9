package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powellbutte/streamwatch/internal/kvstore"
)

func TestShouldEmitEnforcesLiveCooldown(t *testing.T) {
	ctx := context.Background()
	d := NewDeduper(kvstore.NewMemory(), 15*time.Minute, nil)
	t1 := time.Date(2025, 6, 1, 8, 32, 0, 0, time.UTC)

	assert.True(t, d.ShouldEmit(ctx, ClassLiveDetected, t1), "no prior record")
	require.NoError(t, d.RecordEmission(ctx, ClassLiveDetected, t1))

	assert.False(t, d.ShouldEmit(ctx, ClassLiveDetected, t1.Add(2*time.Minute)))
	assert.False(t, d.ShouldEmit(ctx, ClassLiveDetected, t1.Add(15*time.Minute-time.Second)))
	assert.True(t, d.ShouldEmit(ctx, ClassLiveDetected, t1.Add(15*time.Minute)))
}

func TestShouldEmitClassesAreIndependent(t *testing.T) {
	ctx := context.Background()
	d := NewDeduper(kvstore.NewMemory(), 15*time.Minute, nil)
	t1 := time.Date(2025, 6, 1, 8, 32, 0, 0, time.UTC)

	require.NoError(t, d.RecordEmission(ctx, ClassLiveDetected, t1))
	assert.True(t, d.ShouldEmit(ctx, ClassTest, t1.Add(time.Minute)))
}

func TestLastEmissionRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := NewDeduper(kvstore.NewMemory(), 15*time.Minute, nil)

	_, ok := d.LastEmission(ctx, ClassLiveDetected)
	assert.False(t, ok)

	t1 := time.Date(2025, 6, 1, 8, 32, 17, 0, time.UTC)
	require.NoError(t, d.RecordEmission(ctx, ClassLiveDetected, t1))

	got, ok := d.LastEmission(ctx, ClassLiveDetected)
	require.True(t, ok)
	assert.True(t, got.Equal(t1))
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store down")
}
func (failingStore) Set(context.Context, string, string) error { return errors.New("store down") }
func (failingStore) Delete(context.Context, string) error      { return errors.New("store down") }

func TestShouldEmitFailsOpenOnStoreError(t *testing.T) {
	d := NewDeduper(failingStore{}, 15*time.Minute, nil)
	assert.True(t, d.ShouldEmit(context.Background(), ClassLiveDetected, time.Now()))
}

func TestShouldEmitFailsOpenOnMalformedRecord(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	require.NoError(t, store.Set(ctx, "notify:last:live_detected", "not-a-timestamp"))

	d := NewDeduper(store, 15*time.Minute, nil)
	assert.True(t, d.ShouldEmit(ctx, ClassLiveDetected, time.Now()))
}

func TestLiveDetectedPayload(t *testing.T) {
	n := LiveDetected("abc123")
	assert.Equal(t, ClassLiveDetected, n.Class)
	assert.Equal(t, TypeLiveStream, n.Data.Type)
	assert.Equal(t, DeepLinkLive, n.Data.DeepLink)
	assert.Equal(t, "abc123", n.Data.StreamID)
	assert.True(t, n.Sound)
	assert.Equal(t, PriorityHigh, n.Priority)
	assert.NotEmpty(t, n.ID)
}

func TestScheduledReminderPayload(t *testing.T) {
	n := ScheduledReminder("Early Service")
	assert.Equal(t, ClassScheduledReminder, n.Class)
	assert.Equal(t, TypeScheduledService, n.Data.Type)
	assert.Equal(t, DeepLinkLive, n.Data.DeepLink)
	assert.Equal(t, "Early Service", n.Data.ServiceName)
}
