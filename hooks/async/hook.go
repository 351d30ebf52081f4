// Package asynchook decouples hook sinks from the cache's hot paths.
//
// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/fetchcache"
//	"github.com/unkn0wn-root/fetchcache/hooks/async"
//	"github.com/unkn0wn-root/fetchcache/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery:    10, // sample logs: ~every 10th self-heal
//	    FetchSharedEvery: 50, // dedup joins are frequent; sample hard
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	reg, _ := fetchcache.New(fetchcache.Options{
//	    Provider: provider,
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/fetchcache"
)

type Hooks struct {
	inner fetchcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ fetchcache.Hooks = (*Hooks)(nil)

func New(inner fetchcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) SelfHealEntry(k, r string)        { h.try(func() { h.inner.SelfHealEntry(k, r) }) }
func (h *Hooks) FetchShared(ep, id string)        { h.try(func() { h.inner.FetchShared(ep, id) }) }
func (h *Hooks) ProviderSetRejected(k string)     { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) GenBumpError(k string, err error) { h.try(func() { h.inner.GenBumpError(k, err) }) }
func (h *Hooks) FetchRejected(ep, id string, err error) {
	h.try(func() { h.inner.FetchRejected(ep, id, err) })
}
func (h *Hooks) GenSnapshotError(n int, err error) {
	h.try(func() { h.inner.GenSnapshotError(n, err) })
}
func (h *Hooks) MutationRejected(ep, op string, err error) {
	h.try(func() { h.inner.MutationRejected(ep, op, err) })
}
