package fetchcache

// ReadState tags the three possible results of a cache read.
type ReadState uint8

const (
	// ReadReady: a resolved value is available synchronously.
	ReadReady ReadState = iota
	// ReadPending: a fetch is in flight; the Outcome carries its handle.
	ReadPending
	// ReadFailed: the last fetch for this id failed (or the operation is
	// not declared); the Outcome carries the error.
	ReadFailed
)

func (s ReadState) String() string {
	switch s {
	case ReadReady:
		return "ready"
	case ReadPending:
		return "pending"
	case ReadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the explicit result of Endpoint.Read. Exactly one of the three
// accessors reports true. Pending is a control signal, not an error: the
// consuming scheduling layer should park on the handle and read again (or
// use Endpoint.Get, which does that).
type Outcome[V any] struct {
	state ReadState
	value V
	fetch *Fetch[V]
	err   error
}

func readyOutcome[V any](v V) Outcome[V] {
	return Outcome[V]{state: ReadReady, value: v}
}

func pendingOutcome[V any](f *Fetch[V]) Outcome[V] {
	return Outcome[V]{state: ReadPending, fetch: f}
}

func failedOutcome[V any](err error) Outcome[V] {
	return Outcome[V]{state: ReadFailed, err: err}
}

// State returns the outcome's tag.
func (o Outcome[V]) State() ReadState { return o.state }

// Ready returns the resolved value when the read hit.
func (o Outcome[V]) Ready() (V, bool) { return o.value, o.state == ReadReady }

// Pending returns the shared in-flight handle when the read suspends.
func (o Outcome[V]) Pending() (*Fetch[V], bool) { return o.fetch, o.state == ReadPending }

// Failed returns the cached rejection (or configuration error).
func (o Outcome[V]) Failed() (error, bool) { return o.err, o.state == ReadFailed }
