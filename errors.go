package fetchcache

import (
	"fmt"
)

// CapacityError is returned when registering an endpoint would exceed the
// configured change-mask width. Bits are never reused, so the limit is hard.
type CapacityError struct {
	Width int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("fetchcache: endpoint capacity exhausted (mask width %d)", e.Width)
}

// DuplicateNameError is returned when two endpoints are defined under the
// same name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("fetchcache: endpoint %q already defined", e.Name)
}

// UnsupportedOperationError is returned when an operation is invoked on an
// endpoint that did not declare it.
type UnsupportedOperationError struct {
	Endpoint string
	Op       string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("fetchcache: endpoint %q does not support %s", e.Endpoint, e.Op)
}

// UnknownEndpointError is returned when an invalidation names an endpoint
// that was never registered.
type UnknownEndpointError struct {
	Name string
}

func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("fetchcache: unknown endpoint %q", e.Name)
}

// MutationError wraps a rejection from an endpoint-supplied mutation method.
// No cache writes and no counter bumps happened. Unwrap reaches the cause.
type MutationError struct {
	Endpoint string
	Op       string
	Cause    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("fetchcache: %s %q: %v", e.Op, e.Endpoint, e.Cause)
}

func (e *MutationError) Unwrap() error { return e.Cause }

// FetchError wraps a failed read fetch. The failure stays cached for the
// (endpoint, id) pair until evicted or its error TTL passes; re-reading does
// not retry the fetch.
type FetchError struct {
	Endpoint string
	ID       string
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetchcache: read %q id %q: %v", e.Endpoint, e.ID, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// EvictError reports an eviction where both the generation bump and the
// provider delete failed (likely backend outage).
type EvictError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *EvictError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("evict %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("evict %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("evict %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("evict %q: unknown error", e.Key)
	}
}

func (e *EvictError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
