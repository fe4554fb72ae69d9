// Package planner arms standalone weekly reminders for the services the
// user subscribed to. Unlike the monitor it does not poll: each enabled
// service gets a one-shot timer at its next occurrence, and every firing
// re-derives the following occurrence explicitly rather than trusting a
// repeating-trigger primitive, which keeps behavior auditable and immune
// to DST drift.
package planner

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/powellbutte/streamwatch/internal/kvstore"
	"github.com/powellbutte/streamwatch/internal/notify"
	"github.com/powellbutte/streamwatch/internal/schedule"
)

const fireTimeout = 10 * time.Second

// Reminder pairs a trigger instant with its rule.
type Reminder struct {
	ServiceID string    `json:"serviceId"`
	Label     string    `json:"label"`
	At        time.Time `json:"at"`
}

// Plan computes the next trigger instant for each enabled service, ordered
// by instant. Pure: no timers are armed.
func Plan(prefs Preferences, rules []schedule.Rule, now time.Time) []Reminder {
	reminders := make([]Reminder, 0, len(rules))
	for _, rule := range rules {
		if !prefs.Allows(rule.ID) {
			continue
		}
		reminders = append(reminders, Reminder{
			ServiceID: rule.ID,
			Label:     rule.Label,
			At:        rule.Next(now),
		})
	}
	sort.Slice(reminders, func(i, j int) bool {
		if reminders[i].At.Equal(reminders[j].At) {
			return reminders[i].ServiceID < reminders[j].ServiceID
		}
		return reminders[i].At.Before(reminders[j].At)
	})
	return reminders
}

// Planner owns the armed reminder timers for one process.
type Planner struct {
	rules   []schedule.Rule
	store   kvstore.Store
	deduper *notify.Deduper
	emitter notify.Emitter
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	baseCtx context.Context
	started bool
	gen     int // invalidates timers armed before the last Apply/Stop
	timers  map[string]*time.Timer
	armed   map[string]Reminder
}

// New creates a stopped planner over the registered rules.
func New(rules []schedule.Rule, store kvstore.Store, deduper *notify.Deduper, emitter notify.Emitter, loc *time.Location, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Planner{
		rules:   rules,
		store:   store,
		deduper: deduper,
		emitter: emitter,
		logger:  logger,
		now:     func() time.Time { return time.Now().In(loc) },
		timers:  make(map[string]*time.Timer),
		armed:   make(map[string]Reminder),
	}
}

// Start loads stored preferences and arms reminders for the enabled
// services. Starting an already started planner is a no-op.
func (p *Planner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	prefs, err := LoadPreferences(ctx, p.store, p.rules)
	if err != nil {
		p.logger.Warn("preferences unavailable, defaulting to all services", "error", err)
	}

	p.baseCtx = ctx
	p.started = true
	p.armAllLocked(prefs)
	p.logger.Info("Reminder planner started", "armed", len(p.timers))
	return nil
}

// Apply persists new preferences, clears every armed reminder, and
// re-plans from the new enabled set. No stale reminder survives.
func (p *Planner) Apply(ctx context.Context, prefs Preferences) error {
	if err := prefs.Validate(p.rules); err != nil {
		return err
	}
	if err := SavePreferences(ctx, p.store, prefs); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
	if p.started {
		p.armAllLocked(prefs)
	}
	p.logger.Info("Preferences applied", "enabled", len(prefs.Enabled), "armed", len(p.timers))
	return nil
}

// Armed returns the currently armed reminders ordered by trigger instant.
func (p *Planner) Armed() []Reminder {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Reminder, 0, len(p.armed))
	for _, r := range p.armed {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].ServiceID < out[j].ServiceID
		}
		return out[i].At.Before(out[j].At)
	})
	return out
}

// Stop cancels every armed timer. Safe to call repeatedly.
func (p *Planner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
	p.started = false
}

func (p *Planner) armAllLocked(prefs Preferences) {
	now := p.now()
	for _, rule := range p.rules {
		if prefs.Allows(rule.ID) {
			p.armLocked(rule, rule.Next(now))
		}
	}
}

func (p *Planner) armLocked(rule schedule.Rule, at time.Time) {
	gen := p.gen
	delay := at.Sub(p.now())
	if delay < 0 {
		delay = 0
	}

	p.armed[rule.ID] = Reminder{ServiceID: rule.ID, Label: rule.Label, At: at}
	p.timers[rule.ID] = time.AfterFunc(delay, func() {
		p.fire(gen, rule)
	})
}

// fire emits the reminder and re-arms the rule for the following week.
// A stale generation means preferences changed (or the planner stopped)
// after this timer was armed; it must do nothing.
func (p *Planner) fire(gen int, rule schedule.Rule) {
	p.mu.Lock()
	if !p.started || gen != p.gen {
		p.mu.Unlock()
		return
	}
	baseCtx := p.baseCtx
	p.mu.Unlock()

	if baseCtx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(baseCtx, fireTimeout)
	defer cancel()

	now := p.now()
	if p.deduper.ShouldEmit(ctx, notify.ClassScheduledReminder, now) {
		n := notify.ScheduledReminder(rule.Label)
		if err := p.emitter.Emit(ctx, n); err != nil {
			p.logger.Warn("reminder emission failed", "service", rule.ID, "error", err)
		} else {
			if err := p.deduper.RecordEmission(ctx, notify.ClassScheduledReminder, now); err != nil {
				p.logger.Warn("failed to record reminder emission", "error", err)
			}
			p.logger.Info("service reminder fired", "service", rule.ID)
		}
	}

	// Each firing is logically independent: derive the next occurrence
	// fresh, strictly after this trigger.
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || gen != p.gen {
		return
	}
	p.armLocked(rule, rule.NextAfter(now))
}

func (p *Planner) clearLocked() {
	for id, t := range p.timers {
		t.Stop()
		delete(p.timers, id)
		delete(p.armed, id)
	}
	p.gen++
}
