package fetchcache

import (
	"context"
	"sort"
	"sync"
)

// Invalidator is the per-mutation invalidation transaction. The endpoint
// method receives it and may call Invalidate any number of times before it
// returns; recorded evictions and counter bumps are applied only once the
// method settles successfully. A rejected mutation discards the transaction
// untouched.
type Invalidator struct {
	r *Registry

	mu      sync.Mutex
	touched map[string]struct{}
	pending []eviction
}

type eviction struct {
	name string
	id   string
	all  bool
}

func newInvalidator(r *Registry) *Invalidator {
	return &Invalidator{r: r, touched: make(map[string]struct{})}
}

// Invalidate marks the named endpoint's data stale. With ids, only those
// entries are evicted; without, the endpoint's entire cache is cleared.
// Either way the endpoint joins the transaction's touched set, so its
// notification counter bumps on commit - this is how a mutation on one
// endpoint marks a different endpoint (say, a list view) as changed.
// Repeated calls accumulate; the touched set is a union.
func (t *Invalidator) Invalidate(name string, ids ...string) error {
	t.r.mu.RLock()
	_, ok := t.r.endpoints[name]
	t.r.mu.RUnlock()
	if !ok {
		return &UnknownEndpointError{Name: name}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.touched[name] = struct{}{}
	if len(ids) == 0 {
		t.pending = append(t.pending, eviction{name: name, all: true})
		return nil
	}
	for _, id := range ids {
		t.pending = append(t.pending, eviction{name: name, id: id})
	}
	return nil
}

// touch adds a name to the touched set without scheduling an eviction.
// The coordinator uses it for the mutated endpoint itself.
func (t *Invalidator) touch(name string) {
	t.mu.Lock()
	t.touched[name] = struct{}{}
	t.mu.Unlock()
}

// commit applies the recorded evictions. Called by the coordinator after the
// underlying operation settled successfully, before counters bump.
func (t *Invalidator) commit(ctx context.Context) {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	for _, ev := range pending {
		t.r.mu.RLock()
		ref, ok := t.r.endpoints[ev.name]
		t.r.mu.RUnlock()
		if !ok {
			continue
		}
		var err error
		if ev.all {
			err = ref.cache.evictAll(ctx)
		} else {
			err = ref.cache.evict(ctx, ev.id)
		}
		if err != nil {
			t.r.log.Error("invalidation eviction failed", Fields{"endpoint": ev.name, "id": ev.id, "err": err})
		}
	}
}

// names returns the touched set in stable order.
func (t *Invalidator) names() []string {
	t.mu.Lock()
	out := make([]string, 0, len(t.touched))
	for n := range t.touched {
		out = append(out, n)
	}
	t.mu.Unlock()
	sort.Strings(out)
	return out
}
