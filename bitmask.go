package fetchcache

// NotificationState maps endpoint name to its notification counter: the
// "generation" of that endpoint's data. Counters only move forward; two
// snapshots therefore identify exactly which endpoints changed in between.
type NotificationState map[string]uint64

// Clone returns an independent copy of the state.
func (s NotificationState) Clone() NotificationState {
	out := make(NotificationState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// bitmask assigns each registered endpoint a unique power-of-two bit in a
// shared change mask, in registration order. Bits are stable for the process
// lifetime and never reused.
type bitmask struct {
	width int // usable bits, 1..64
	bits  map[string]uint64
	next  int
}

func newBitmask(width int) *bitmask {
	return &bitmask{width: width, bits: make(map[string]uint64)}
}

// register assigns the next free bit. Callers hold the registry lock.
func (m *bitmask) register(name string) (uint64, error) {
	if m.next >= m.width {
		return 0, &CapacityError{Width: m.width}
	}
	bit := uint64(1) << uint(m.next)
	m.bits[name] = bit
	m.next++
	return bit, nil
}

func (m *bitmask) bit(name string) (uint64, bool) {
	b, ok := m.bits[name]
	return b, ok
}

// diff ORs the bit of every endpoint present in next whose counter differs
// from prev. Endpoints absent from next contribute nothing; names without an
// assigned bit are skipped.
func (m *bitmask) diff(prev, next NotificationState) uint64 {
	var mask uint64
	for name, n := range next {
		if prev[name] == n {
			continue
		}
		if bit, ok := m.bits[name]; ok {
			mask |= bit
		}
	}
	return mask
}
