package fetchcache

import "context"

// Mutation coordination: each call opens an invalidation transaction, runs
// the endpoint-supplied method, and - only on success - applies evictions,
// direct cache writes and notification bumps, strictly in that order and
// strictly before returning. A rejected method leaves cache and counters
// byte-for-byte untouched; the rejection is wrapped in *MutationError with
// the cause reachable via Unwrap.

// Created carries a create method's result as an explicit record. Value may
// be nil when the backend does not echo the created resource; the submitted
// data is cached in its place.
type Created[V any] struct {
	ID    string
	Value *V
}

// Create runs the endpoint's create method, caches the new record under its
// new id and returns that id.
func (e *Endpoint[V]) Create(ctx context.Context, data V) (string, error) {
	if e.methods.Create == nil {
		return "", &UnsupportedOperationError{Endpoint: e.name, Op: "create"}
	}
	tx := newInvalidator(e.r)
	res, err := e.methods.Create(ctx, data, tx)
	if err != nil {
		e.r.hooks.MutationRejected(e.name, "create", err)
		return "", &MutationError{Endpoint: e.name, Op: "create", Cause: err}
	}
	tx.touch(e.name)
	tx.commit(ctx)

	val := data
	if res.Value != nil {
		val = *res.Value
	}
	e.store.Write(ctx, res.ID, val)
	e.r.hub.publish(ctx, tx.names())
	return res.ID, nil
}

// Update runs the endpoint's update method. The prior cache state for id is
// always considered replaced: it is evicted even if the method body never
// invalidated it, then the fresh value is written. Returns the new value
// (the method's result, or the submitted data if the method returned nil).
func (e *Endpoint[V]) Update(ctx context.Context, id string, data V) (V, error) {
	var zero V
	if e.methods.Update == nil {
		return zero, &UnsupportedOperationError{Endpoint: e.name, Op: "update"}
	}
	tx := newInvalidator(e.r)
	out, err := e.methods.Update(ctx, id, data, tx)
	if err != nil {
		e.r.hooks.MutationRejected(e.name, "update", err)
		return zero, &MutationError{Endpoint: e.name, Op: "update", Cause: err}
	}
	tx.touch(e.name)
	tx.commit(ctx)

	if err := e.store.evict(ctx, id); err != nil {
		e.r.log.Warn("update eviction failed", Fields{"endpoint": e.name, "id": id, "err": err})
	}
	val := data
	if out != nil {
		val = *out
	}
	e.store.Write(ctx, id, val)
	e.r.hub.publish(ctx, tx.names())
	return val, nil
}

// Delete runs the endpoint's delete method and evicts the id's cache entry.
func (e *Endpoint[V]) Delete(ctx context.Context, id string) error {
	if e.methods.Delete == nil {
		return &UnsupportedOperationError{Endpoint: e.name, Op: "delete"}
	}
	tx := newInvalidator(e.r)
	if err := e.methods.Delete(ctx, id, tx); err != nil {
		e.r.hooks.MutationRejected(e.name, "delete", err)
		return &MutationError{Endpoint: e.name, Op: "delete", Cause: err}
	}
	tx.touch(e.name)
	tx.commit(ctx)

	if err := e.store.evict(ctx, id); err != nil {
		e.r.log.Warn("delete eviction failed", Fields{"endpoint": e.name, "id": id, "err": err})
	}
	e.r.hub.publish(ctx, tx.names())
	return nil
}

// Post runs a free-form mutation and returns its response. Post performs no
// implicit cache write and does not touch its own endpoint: only what the
// method body explicitly invalidated is evicted and bumped.
func (e *Endpoint[V]) Post(ctx context.Context, data V) (V, error) {
	var zero V
	if e.methods.Post == nil {
		return zero, &UnsupportedOperationError{Endpoint: e.name, Op: "post"}
	}
	tx := newInvalidator(e.r)
	out, err := e.methods.Post(ctx, data, tx)
	if err != nil {
		e.r.hooks.MutationRejected(e.name, "post", err)
		return zero, &MutationError{Endpoint: e.name, Op: "post", Cause: err}
	}
	tx.commit(ctx)
	e.r.hub.publish(ctx, tx.names())
	return out, nil
}
