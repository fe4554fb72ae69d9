package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/powellbutte/streamwatch/internal/kvstore"
	"github.com/powellbutte/streamwatch/internal/schedule"
)

// ErrUnknownService marks a preference set referencing a service ID that is
// not in the registry.
var ErrUnknownService = errors.New("unknown service id")

// PrefsKey is the key-value record holding the user's service selection.
const PrefsKey = "prefs:services"

// Preferences is the user's subscribed subset of recurring services.
// The zero distinction matters: an absent stored record means the user has
// never chosen and every service is enabled; a stored empty list is an
// explicit opt-out of all of them.
type Preferences struct {
	Enabled []string `json:"enabled"`
}

// DefaultPreferences enables every registered service.
func DefaultPreferences(rules []schedule.Rule) Preferences {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return Preferences{Enabled: ids}
}

// Allows reports whether the service ID is enabled.
func (p Preferences) Allows(id string) bool {
	for _, e := range p.Enabled {
		if e == id {
			return true
		}
	}
	return false
}

// Validate rejects preferences referencing unknown service IDs.
func (p Preferences) Validate(rules []schedule.Rule) error {
	for _, id := range p.Enabled {
		known := false
		for _, r := range rules {
			if r.ID == id {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: %q", ErrUnknownService, id)
		}
	}
	return nil
}

// LoadPreferences reads the stored selection. Read or decode failures fail
// open to the all-enabled default; the error is returned alongside so
// callers can log it.
func LoadPreferences(ctx context.Context, store kvstore.Store, rules []schedule.Rule) (Preferences, error) {
	raw, ok, err := store.Get(ctx, PrefsKey)
	if err != nil {
		return DefaultPreferences(rules), fmt.Errorf("read preferences: %w", err)
	}
	if !ok {
		return DefaultPreferences(rules), nil
	}

	var p Preferences
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return DefaultPreferences(rules), fmt.Errorf("decode preferences: %w", err)
	}
	if p.Enabled == nil {
		p.Enabled = []string{}
	}
	return p, nil
}

// SavePreferences persists the selection.
func SavePreferences(ctx context.Context, store kvstore.Store, p Preferences) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := store.Set(ctx, PrefsKey, string(raw)); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
