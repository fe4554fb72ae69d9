package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/powellbutte/streamwatch/internal/kvstore"
)

const lastEmissionKeyPrefix = "notify:last:"

// Deduper tracks the last emission instant per class in the key-value
// store and enforces class cooldowns. It performs no locking of its own:
// the monitor serializes probe cycles, so check-then-record never races
// within a process, and cross-restart races are accepted (single active
// instance assumed).
type Deduper struct {
	store        kvstore.Store
	liveCooldown time.Duration
	logger       *slog.Logger
}

// NewDeduper creates a de-duplicator over the given store.
func NewDeduper(store kvstore.Store, liveCooldown time.Duration, logger *slog.Logger) *Deduper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduper{store: store, liveCooldown: liveCooldown, logger: logger}
}

// ShouldEmit reports whether a notification of the class may fire at now.
// Persistence failures fail open: a lost record can at worst produce one
// extra notification, while blocking would silence the feature entirely.
func (d *Deduper) ShouldEmit(ctx context.Context, class Class, now time.Time) bool {
	last, ok := d.lastEmission(ctx, class)
	if !ok {
		return true
	}
	return now.Sub(last) >= cooldownFor(class, d.liveCooldown)
}

// RecordEmission overwrites the class's last-fired instant.
func (d *Deduper) RecordEmission(ctx context.Context, class Class, now time.Time) error {
	return d.store.Set(ctx, lastEmissionKeyPrefix+string(class), now.UTC().Format(time.RFC3339))
}

// LastEmission returns the recorded last-fired instant for a class.
func (d *Deduper) LastEmission(ctx context.Context, class Class) (time.Time, bool) {
	return d.lastEmission(ctx, class)
}

func (d *Deduper) lastEmission(ctx context.Context, class Class) (time.Time, bool) {
	raw, ok, err := d.store.Get(ctx, lastEmissionKeyPrefix+string(class))
	if err != nil {
		d.logger.Warn("cooldown read failed, assuming no prior emission", "class", class, "error", err)
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}
	last, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		d.logger.Warn("cooldown record malformed, assuming no prior emission", "class", class, "value", raw)
		return time.Time{}, false
	}
	return last, true
}
