package fetchcache

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/fetchcache/internal/util"
)

// Hub is the notification side of the registry: it owns the per-endpoint
// notification counters and fans successful-mutation diffs out to
// subscribers. A subscriber registers the OR of the bits of the endpoints it
// reads; it is invoked only when a published change mask intersects that
// registration, so unrelated mutations cost it nothing.
//
// Callbacks run synchronously on the mutating goroutine and MUST be cheap
// and non-blocking (same contract as Hooks). A heavier subscription
// substrate - reactive tree, polling loop, actor mailbox - should do no more
// than hand the snapshot off here.
type Hub struct {
	r *Registry

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	last   NotificationState
}

type subscription struct {
	mask uint64
	fn   func(state NotificationState, changed uint64)
}

func newHub(r *Registry) *Hub {
	return &Hub{r: r, subs: make(map[uint64]*subscription)}
}

// seed establishes the diff baseline from the live counters before the first
// bump. Counters may be persisted (RedisGenStore) and nonzero at startup;
// without a baseline the first publish would report every endpoint changed.
func (h *Hub) seed(ctx context.Context) {
	h.mu.Lock()
	seeded := h.last != nil
	h.mu.Unlock()
	if seeded {
		return
	}
	base, err := h.Snapshot(ctx)
	if err != nil {
		return
	}
	h.mu.Lock()
	if h.last == nil {
		h.last = base
	}
	h.mu.Unlock()
}

// Subscribe registers fn for every endpoint whose bit is set in mask and
// returns a cancel func. Use Registry.Bit to build the mask.
func (h *Hub) Subscribe(mask uint64, fn func(state NotificationState, changed uint64)) (cancel func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = &subscription{mask: mask, fn: fn}
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Snapshot returns the current notification counters of every registered
// endpoint. Observers diff two snapshots via Registry.Diff.
func (h *Hub) Snapshot(ctx context.Context) (NotificationState, error) {
	names := h.r.Names()
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = util.NotifyKey(n)
	}
	m, err := h.r.gen.SnapshotMany(ctx, keys)
	if err != nil {
		h.r.hooks.GenSnapshotError(len(keys), err)
		return nil, err
	}
	out := make(NotificationState, len(names))
	for i, n := range names {
		out[n] = m[keys[i]]
	}
	return out, nil
}

// publish bumps the counters of the touched endpoints, then notifies every
// subscriber whose mask intersects the resulting diff. Called by the
// mutation coordinator after cache writes, before the mutation returns.
func (h *Hub) publish(ctx context.Context, touched []string) {
	if len(touched) == 0 {
		return
	}
	h.seed(ctx)
	for _, name := range touched {
		k := util.NotifyKey(name)
		if _, err := h.r.gen.Bump(ctx, k); err != nil {
			h.r.hooks.GenBumpError(k, err)
		}
	}

	next, err := h.Snapshot(ctx)
	if err != nil {
		return
	}

	h.mu.Lock()
	prev := h.last
	h.last = next
	subs := make([]*subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	mask := h.r.Diff(prev, next)
	if mask == 0 {
		return
	}
	for _, s := range subs {
		if s.mask&mask != 0 {
			s.fn(next, mask)
		}
	}
}
