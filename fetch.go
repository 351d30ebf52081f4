package fetchcache

import "context"

// Fetch is the identity-stable handle for one in-flight read. Every reader
// that hits the same (endpoint, id) while the fetch is pending receives the
// same *Fetch, so a scheduling layer can park any number of callers on one
// underlying request. A Fetch settles exactly once and cannot be aborted.
type Fetch[V any] struct {
	done chan struct{}
	val  V
	err  error
}

func newFetch[V any]() *Fetch[V] {
	return &Fetch[V]{done: make(chan struct{})}
}

// settle records the result and releases waiters. Must be called once.
func (f *Fetch[V]) settle(v V, err error) {
	f.val = v
	f.err = err
	close(f.done)
}

// Done is closed when the fetch has settled.
func (f *Fetch[V]) Done() <-chan struct{} { return f.done }

// Settled reports whether the fetch has completed (either way).
func (f *Fetch[V]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the settled value or error. Valid only after Done is
// closed; before that it returns the zero value and nil.
func (f *Fetch[V]) Result() (V, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
		var zero V
		return zero, nil
	}
}

// Wait parks the caller until the fetch settles or ctx is canceled.
// Cancellation abandons the wait only; the fetch itself keeps running and
// its result remains available to other readers.
func (f *Fetch[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}
