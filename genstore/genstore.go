// Package genstore holds the monotonic counters fetchcache is built on.
//
// One store backs three keyspaces: per-id entry generations (bumped on
// single-key eviction), per-endpoint epochs (bumped on whole-endpoint
// eviction) and per-endpoint notification counters (bumped after successful
// mutations). A missing counter reads as 0.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where counters live.
// Use LocalGenStore (default) for in-process counters, or RedisGenStore to
// share them across replicas.
type GenStore interface {
	// Snapshot returns the current counter value; missing => 0.
	Snapshot(ctx context.Context, storageKey string) (uint64, error)
	// SnapshotMany returns counters for many keys; missing => 0.
	SnapshotMany(ctx context.Context, storageKeys []string) (map[string]uint64, error)
	// Bump atomically increments and returns the new value.
	Bump(ctx context.Context, storageKey string) (uint64, error)
	// Cleanup prunes long-idle metadata if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
