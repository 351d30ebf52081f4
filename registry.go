package fetchcache

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/fetchcache/genstore"
)

// Registry is the shared root of one endpoint namespace: the provider, the
// counter store, the bit assignments and the notification hub. It is
// constructed once and passed explicitly - there is no ambient global state.
type Registry struct {
	provider       Provider
	gen            genstore.GenStore
	ownGen         bool
	log            Logger
	hooks          Hooks
	enabled        bool
	computeSetCost SetCostFunc
	valueTTL       time.Duration
	errorTTL       time.Duration

	mask *bitmask
	hub  *Hub

	mu        sync.RWMutex
	endpoints map[string]*endpointRef
	order     []string
}

// endpointRef is the type-erased registry entry for one endpoint.
type endpointRef struct {
	bit   uint64
	cache evictor
}

// Endpoint is one named remote capability bundle: its cache partition, its
// change-mask bit and its declared operations. Created by Define, immutable
// afterwards except for the cache it owns.
type Endpoint[V any] struct {
	name    string
	bit     uint64
	r       *Registry
	store   *cacheStore[V]
	methods Methods[V]
}

// Name returns the endpoint's registry name.
func (e *Endpoint[V]) Name() string { return e.name }

// Bit returns the endpoint's change-mask bit. OR bits together to build a
// subscription mask for Hub.Subscribe.
func (e *Endpoint[V]) Bit() uint64 { return e.bit }

// Read performs the non-blocking three-state read protocol: Ready with a
// cached value, Pending with the shared in-flight handle, or Failed with the
// cached rejection. An empty id addresses the endpoint's singleton entry.
func (e *Endpoint[V]) Read(ctx context.Context, id string) Outcome[V] {
	return e.store.Read(ctx, id)
}

// Get is the blocking convenience over Read: it parks on a pending fetch
// until it settles or ctx is canceled. Cancellation abandons only the wait;
// the shared fetch keeps running for other readers.
func (e *Endpoint[V]) Get(ctx context.Context, id string) (V, error) {
	var zero V
	o := e.Read(ctx, id)
	if v, ok := o.Ready(); ok {
		return v, nil
	}
	if err, ok := o.Failed(); ok {
		return zero, err
	}
	f, _ := o.Pending()
	v, err := f.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, &FetchError{Endpoint: e.name, ID: id, Cause: err}
	}
	return v, nil
}

// Evict removes the cache entry for id without touching notification
// counters. The next read starts a fresh fetch - this is the retry path for
// a cached rejection.
func (e *Endpoint[V]) Evict(ctx context.Context, id string) error {
	return e.store.evict(ctx, id)
}

// EvictAll clears the endpoint's entire cache without touching notification
// counters.
func (e *Endpoint[V]) EvictAll(ctx context.Context) error {
	return e.store.evictAll(ctx)
}

// Hub returns the registry's notification hub.
func (r *Registry) Hub() *Hub { return r.hub }

// Enabled reports whether caching is active (Options.Disabled inverts it).
func (r *Registry) Enabled() bool { return r.enabled }

// Names returns all registered endpoint names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := append([]string(nil), r.order...)
	r.mu.RUnlock()
	return out
}

// Bit returns the change-mask bit assigned to name.
func (r *Registry) Bit(name string) (uint64, bool) {
	r.mu.RLock()
	ref, ok := r.endpoints[name]
	r.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return ref.bit, true
}

// Diff returns the OR of the bits of every endpoint present in next whose
// counter differs from prev. Equal states diff to 0. Observers use the mask
// to decide in O(1) whether their subscription intersects a change.
func (r *Registry) Diff(prev, next NotificationState) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mask.diff(prev, next)
}

// Close releases the counter store (when the registry owns it) and the
// provider.
func (r *Registry) Close(ctx context.Context) error {
	if r.ownGen && r.gen != nil {
		_ = r.gen.Close(ctx)
	}
	if r.provider != nil {
		return r.provider.Close(ctx)
	}
	return nil
}
