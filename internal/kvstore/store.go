// Package kvstore is the persistence port for the monitor, de-duplicator,
// and planner: a small string key-value store that survives process
// restarts. Two implementations exist — Postgres for deployments and an
// in-memory map for tests and database-less development runs.
package kvstore

import "context"

// Store is the key-value port. Get reports presence explicitly so callers
// can distinguish "no record" from an empty value.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
