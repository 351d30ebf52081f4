package fetchcache

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/fetchcache/codec"
	"github.com/unkn0wn-root/fetchcache/internal/util"
	"github.com/unkn0wn-root/fetchcache/internal/wire"
)

// evictor is the type-erased cache surface one endpoint exposes to
// invalidation transactions opened by other endpoints.
type evictor interface {
	evict(ctx context.Context, id string) error
	evictAll(ctx context.Context) error
}

// rejectedEntry caches a failed fetch so re-reads do not hammer the backend.
// The generation stamps are the ones observed when the fetch started; if
// either moved (eviction), the entry is stale and dropped.
type rejectedEntry struct {
	err    error
	epoch  uint64
	keyGen uint64
	at     time.Time
}

// cacheStore is one endpoint's partition of the cache: resolved values live
// in the shared provider under "entry:<endpoint>:", pending and rejected
// states live in-process. All map access is guarded by mu; provider and
// genstore calls happen outside the lock.
type cacheStore[V any] struct {
	ns    string
	r     *Registry
	codec codec.Codec[V]

	valueTTL time.Duration
	errorTTL time.Duration // 0 = rejected entries live until evicted

	readFn func(ctx context.Context, id string) (V, error)

	mu       sync.Mutex
	inflight map[string]*Fetch[V]
	rejected map[string]*rejectedEntry
}

func newCacheStore[V any](r *Registry, ns string, c codec.Codec[V], valueTTL, errorTTL time.Duration,
	readFn func(ctx context.Context, id string) (V, error)) *cacheStore[V] {
	return &cacheStore[V]{
		ns:       ns,
		r:        r,
		codec:    c,
		valueTTL: valueTTL,
		errorTTL: errorTTL,
		readFn:   readFn,
		inflight: make(map[string]*Fetch[V]),
		rejected: make(map[string]*rejectedEntry),
	}
}

// Read implements the three-state read protocol. id may be empty for
// singleton/list endpoints.
func (s *cacheStore[V]) Read(ctx context.Context, id string) Outcome[V] {
	if s.readFn == nil {
		return failedOutcome[V](&UnsupportedOperationError{Endpoint: s.ns, Op: "read"})
	}
	k := util.EntryKey(s.ns, id)

	s.mu.Lock()
	if f, ok := s.inflight[id]; ok {
		s.mu.Unlock()
		s.r.hooks.FetchShared(s.ns, id)
		return pendingOutcome(f)
	}
	re := s.rejected[id]
	s.mu.Unlock()

	if re != nil {
		if s.rejectedValid(k, re) {
			return failedOutcome[V](&FetchError{Endpoint: s.ns, ID: id, Cause: re.err})
		}
		s.mu.Lock()
		if s.rejected[id] == re {
			delete(s.rejected, id)
		}
		s.mu.Unlock()
	}

	if s.r.enabled {
		if v, ok := s.lookup(ctx, k); ok {
			return readyOutcome(v)
		}
	}

	// Miss: start a fetch, unless another reader won the race.
	s.mu.Lock()
	if f, ok := s.inflight[id]; ok {
		s.mu.Unlock()
		s.r.hooks.FetchShared(s.ns, id)
		return pendingOutcome(f)
	}
	f := newFetch[V]()
	s.inflight[id] = f
	s.mu.Unlock()

	epoch := s.epochGen()
	keyGen := s.keyGen(k)
	go s.runFetch(f, id, k, epoch, keyGen)

	return pendingOutcome(f)
}

// lookup reads and validates a provider entry. Corrupt or stale bytes are
// deleted (self-heal) and treated as a miss.
func (s *cacheStore[V]) lookup(ctx context.Context, k string) (V, bool) {
	var zero V
	raw, ok, err := s.r.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false
	}
	epoch, keyGen, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		_ = s.r.provider.Del(ctx, k)
		s.r.hooks.SelfHealEntry(k, "corrupt")
		return zero, false
	}
	if epoch != s.epochGen() {
		_ = s.r.provider.Del(ctx, k)
		s.r.hooks.SelfHealEntry(k, "epoch_mismatch")
		return zero, false
	}
	if keyGen != s.keyGen(k) {
		_ = s.r.provider.Del(ctx, k)
		s.r.hooks.SelfHealEntry(k, "gen_mismatch")
		return zero, false
	}
	v, err := s.codec.Decode(payload)
	if err != nil {
		_ = s.r.provider.Del(ctx, k)
		s.r.hooks.SelfHealEntry(k, "value_decode")
		return zero, false
	}
	return v, true
}

// runFetch executes the endpoint's read and settles the shared handle.
// It runs detached: a shared fetch must not die with one reader's context,
// and once started it cannot be aborted.
func (s *cacheStore[V]) runFetch(f *Fetch[V], id, k string, epoch, keyGen uint64) {
	ctx := context.Background()
	v, err := s.readFn(ctx, id)

	s.mu.Lock()
	current := s.inflight[id] == f
	if current {
		delete(s.inflight, id)
		if err != nil && s.r.enabled {
			s.rejected[id] = &rejectedEntry{err: err, epoch: epoch, keyGen: keyGen, at: time.Now()}
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.r.hooks.FetchRejected(s.ns, id, err)
	} else if current {
		s.writeWithGens(ctx, k, v, epoch, keyGen)
	}
	f.settle(v, err)
}

// rejectedValid reports whether a cached rejection is still authoritative.
func (s *cacheStore[V]) rejectedValid(k string, re *rejectedEntry) bool {
	if s.errorTTL > 0 && time.Since(re.at) >= s.errorTTL {
		return false
	}
	return re.epoch == s.epochGen() && re.keyGen == s.keyGen(k)
}

// writeWithGens is the CAS write: it stores the value only if both
// generation stamps are still current, so a racing eviction wins.
func (s *cacheStore[V]) writeWithGens(ctx context.Context, k string, v V, epoch, keyGen uint64) {
	if !s.r.enabled {
		return
	}
	if s.epochGen() != epoch || s.keyGen(k) != keyGen {
		s.r.log.Debug("cache write skipped (gen moved)", Fields{"key": k})
		return
	}
	payload, err := s.codec.Encode(v)
	if err != nil {
		s.r.log.Warn("value encode failed; not cached", Fields{"key": k, "err": err})
		return
	}
	wireb := wire.EncodeEntry(epoch, keyGen, payload)
	ok, err := s.r.provider.Set(ctx, k, wireb, s.r.computeSetCost(k, wireb), s.valueTTL)
	if err != nil {
		s.r.log.Warn("provider set failed", Fields{"key": k, "err": err})
		return
	}
	if !ok {
		s.r.hooks.ProviderSetRejected(k)
	}
}

// Write is the direct cache write used after create/update: it overwrites
// any prior state unconditionally. The key generation is bumped first so a
// still-running fetch for the same id cannot clobber the fresh value.
func (s *cacheStore[V]) Write(ctx context.Context, id string, v V) {
	k := util.EntryKey(s.ns, id)

	s.mu.Lock()
	delete(s.inflight, id) // detach; the fetch still settles for its waiters
	delete(s.rejected, id)
	s.mu.Unlock()

	keyGen := s.bumpGen(k)
	if !s.r.enabled {
		return
	}
	epoch := s.epochGen()
	payload, err := s.codec.Encode(v)
	if err != nil {
		s.r.log.Warn("value encode failed; not cached", Fields{"key": k, "err": err})
		return
	}
	wireb := wire.EncodeEntry(epoch, keyGen, payload)
	ok, err := s.r.provider.Set(ctx, k, wireb, s.r.computeSetCost(k, wireb), s.valueTTL)
	if err != nil {
		s.r.log.Warn("provider set failed", Fields{"key": k, "err": err})
		return
	}
	if !ok {
		s.r.hooks.ProviderSetRejected(k)
	}
}

// Evict removes the entry for id: detach any in-flight fetch, drop the
// cached rejection, bump the key generation and delete the provider entry.
// The next read starts a fresh fetch.
func (s *cacheStore[V]) evict(ctx context.Context, id string) error {
	k := util.EntryKey(s.ns, id)

	s.mu.Lock()
	delete(s.inflight, id)
	delete(s.rejected, id)
	s.mu.Unlock()

	_, bumpErr := s.r.gen.Bump(ctx, k)
	if bumpErr != nil {
		s.r.hooks.GenBumpError(k, bumpErr)
	}
	delErr := s.r.provider.Del(ctx, k)
	if bumpErr != nil && delErr != nil {
		return &EvictError{Key: k, BumpErr: bumpErr, DelErr: delErr}
	}
	return nil
}

// EvictAll clears every entry of the endpoint by bumping its epoch; stale
// provider entries die lazily on their next read. In-process state is
// dropped eagerly.
func (s *cacheStore[V]) evictAll(ctx context.Context) error {
	s.mu.Lock()
	// detached fetches still settle; their CAS writes skip on the old epoch
	s.inflight = make(map[string]*Fetch[V])
	s.rejected = make(map[string]*rejectedEntry)
	s.mu.Unlock()

	ek := util.EpochKey(s.ns)
	if _, err := s.r.gen.Bump(ctx, ek); err != nil {
		s.r.hooks.GenBumpError(ek, err)
		return err
	}
	return nil
}

func (s *cacheStore[V]) epochGen() uint64 {
	return s.snapshot(util.EpochKey(s.ns))
}

func (s *cacheStore[V]) keyGen(storageKey string) uint64 {
	return s.snapshot(storageKey)
}

func (s *cacheStore[V]) snapshot(storageKey string) uint64 {
	g, err := s.r.gen.Snapshot(context.Background(), storageKey)
	if err != nil {
		// Conservative: treat as 0 so CAS writes skip; reads self-heal.
		s.r.hooks.GenSnapshotError(1, err)
		return 0
	}
	return g
}

func (s *cacheStore[V]) bumpGen(storageKey string) uint64 {
	g, err := s.r.gen.Bump(context.Background(), storageKey)
	if err != nil {
		s.r.hooks.GenBumpError(storageKey, err)
		return 0
	}
	return g
}
