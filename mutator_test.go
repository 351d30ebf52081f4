package fetchcache

import (
	"context"
	"errors"
	"testing"

	c "github.com/unkn0wn-root/fetchcache/codec"
)

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// defineCRUD wires a full create/update/delete/post endpoint over an
// in-test map backend.
func defineCRUD(t *testing.T, r *Registry, name string, b *fakeBackend) *Endpoint[post] {
	t.Helper()
	ep, err := Define(r, EndpointOptions[post]{
		Name:  name,
		Codec: c.JSON[post]{},
		Methods: Methods[post]{
			Read: b.read,
			Create: func(_ context.Context, data post, _ *Invalidator) (Created[post], error) {
				id := "id-" + data.Title
				stored := data
				stored.ID = id
				b.put(id, stored)
				return Created[post]{ID: id, Value: &stored}, nil
			},
			Update: func(_ context.Context, id string, data post, _ *Invalidator) (*post, error) {
				b.put(id, data)
				return &data, nil
			},
			Delete: func(_ context.Context, id string, _ *Invalidator) error {
				b.mu.Lock()
				delete(b.data, id)
				b.mu.Unlock()
				return nil
			},
			Post: func(_ context.Context, data post, _ *Invalidator) (post, error) {
				return data, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("Define %s: %v", name, err)
	}
	return ep
}

func snapshot(t *testing.T, r *Registry) NotificationState {
	t.Helper()
	s, err := r.Hub().Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return s
}

// TestCreateCachesValueWithoutFetch: after create, reading the new id is a
// synchronous hit and issues no fetch.
func TestCreateCachesValueWithoutFetch(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newMemProvider(), nil)
	defer r.Close(ctx)

	b := newFakeBackend()
	ep := defineCRUD(t, r, "Posts", b)

	id, err := ep.Create(ctx, post{Title: "first"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != "id-first" {
		t.Fatalf("unexpected id %q", id)
	}

	o := ep.Read(ctx, id)
	v, ok := o.Ready()
	if !ok || v.Title != "first" || v.ID != id {
		t.Fatalf("expected synchronous hit of created value, state=%v v=%+v", o.State(), v)
	}
	if n := b.fetches.Load(); n != 0 {
		t.Fatalf("read after create issued %d fetches", n)
	}
}

// TestUpdateWritesFreshValueAndBumpsOnce: after update, the new value is
// readable and the endpoint's notification counter moved by exactly 1.
func TestUpdateWritesFreshValueAndBumpsOnce(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newMemProvider(), nil)
	defer r.Close(ctx)

	b := newFakeBackend()
	b.put("7", post{ID: "7", Title: "old"})
	ep := defineCRUD(t, r, "Posts", b)

	// warm the cache with the old value
	o := waitReady(t, ctx, ep, "7")
	if v, _ := o.Ready(); v.Title != "old" {
		t.Fatalf("warmup got %+v", v)
	}

	before := snapshot(t, r)
	updated, err := ep.Update(ctx, "7", post{ID: "7", Title: "new"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "new" {
		t.Fatalf("Update returned %+v", updated)
	}
	after := snapshot(t, r)

	if after["Posts"] != before["Posts"]+1 {
		t.Fatalf("counter moved %d -> %d, want +1", before["Posts"], after["Posts"])
	}

	o = ep.Read(ctx, "7")
	v, ok := o.Ready()
	if !ok || v.Title != "new" {
		t.Fatalf("read after update: state=%v v=%+v", o.State(), v)
	}
	if n := b.fetches.Load(); n != 1 {
		t.Fatalf("update should not trigger a refetch, fetches=%d", n)
	}
}

// TestCrossEndpointInvalidation: invalidating "Posts" (no id) inside a
// Profiles update clears Posts' entire cache and bumps its counter.
func TestCrossEndpointInvalidation(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newMemProvider(), nil)
	defer r.Close(ctx)

	posts := newFakeBackend()
	posts.put("1", post{ID: "1", Title: "one"})
	posts.put("2", post{ID: "2", Title: "two"})
	postsEP := definePosts(t, r, posts)

	profEP, err := Define(r, EndpointOptions[profile]{
		Name:  "Profiles",
		Codec: c.JSON[profile]{},
		Methods: Methods[profile]{
			Update: func(_ context.Context, id string, data profile, inv *Invalidator) (*profile, error) {
				// a profile rename changes how every post is attributed
				if err := inv.Invalidate("Posts"); err != nil {
					return nil, err
				}
				return &data, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("Define Profiles: %v", err)
	}

	waitReady(t, ctx, postsEP, "1")
	waitReady(t, ctx, postsEP, "2")
	warm := posts.fetches.Load()

	before := snapshot(t, r)
	if _, err := profEP.Update(ctx, "u1", profile{ID: "u1", Name: "renamed"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	after := snapshot(t, r)

	if after["Posts"] != before["Posts"]+1 {
		t.Fatalf("Posts counter moved %d -> %d, want +1", before["Posts"], after["Posts"])
	}
	if after["Profiles"] != before["Profiles"]+1 {
		t.Fatalf("Profiles counter moved %d -> %d, want +1", before["Profiles"], after["Profiles"])
	}

	// every Posts id refetches
	waitReady(t, ctx, postsEP, "1")
	waitReady(t, ctx, postsEP, "2")
	if n := posts.fetches.Load(); n != warm+2 {
		t.Fatalf("expected both Posts ids evicted, fetches %d -> %d", warm, n)
	}
}

// TestFailedMutationLeavesStateUntouched: a rejected method applies nothing
// and the cause propagates unchanged.
func TestFailedMutationLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newMemProvider(), nil)
	defer r.Close(ctx)

	b := newFakeBackend()
	b.put("1", post{ID: "1", Title: "stable"})
	cause := errors.New("constraint violation")

	ep, err := Define(r, EndpointOptions[post]{
		Name:  "Posts",
		Codec: c.JSON[post]{},
		Methods: Methods[post]{
			Read: b.read,
			Update: func(_ context.Context, _ string, _ post, inv *Invalidator) (*post, error) {
				// recorded but must never apply
				_ = inv.Invalidate("Posts", "1")
				return nil, cause
			},
		},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	waitReady(t, ctx, ep, "1")
	before := snapshot(t, r)

	_, err = ep.Update(ctx, "1", post{ID: "1", Title: "mutated"})
	if err == nil {
		t.Fatalf("expected rejection")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not preserved: %v", err)
	}
	var me *MutationError
	if !errors.As(err, &me) || me.Op != "update" {
		t.Fatalf("expected MutationError(update), got %v", err)
	}

	after := snapshot(t, r)
	for name, v := range before {
		if after[name] != v {
			t.Fatalf("counter %q moved %d -> %d on failed mutation", name, v, after[name])
		}
	}

	// cache untouched: old value still a synchronous hit
	o := ep.Read(ctx, "1")
	v, ok := o.Ready()
	if !ok || v.Title != "stable" {
		t.Fatalf("cache changed on failed mutation: state=%v v=%+v", o.State(), v)
	}
	if n := b.fetches.Load(); n != 1 {
		t.Fatalf("failed mutation evicted the entry, fetches=%d", n)
	}
}

// TestDeleteEvictsAndBumps: delete clears the id and bumps the counter;
// the next read refetches (and here fails, since the record is gone).
func TestDeleteEvictsAndBumps(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newMemProvider(), nil)
	defer r.Close(ctx)

	b := newFakeBackend()
	b.put("1", post{ID: "1", Title: "doomed"})
	ep := defineCRUD(t, r, "Posts", b)

	waitReady(t, ctx, ep, "1")
	before := snapshot(t, r)

	if err := ep.Delete(ctx, "1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	after := snapshot(t, r)
	if after["Posts"] != before["Posts"]+1 {
		t.Fatalf("counter moved %d -> %d, want +1", before["Posts"], after["Posts"])
	}

	o := waitReady(t, ctx, ep, "1")
	if _, failed := o.Failed(); !failed {
		t.Fatalf("expected refetch of deleted id to fail, state=%v", o.State())
	}
	if n := b.fetches.Load(); n != 2 {
		t.Fatalf("expected refetch after delete, fetches=%d", n)
	}
}

// TestPostBumpsOnlyExplicitlyTouched: post without invalidations changes no
// counters; post with an explicit invalidation bumps exactly that endpoint.
func TestPostBumpsOnlyExplicitlyTouched(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newMemProvider(), nil)
	defer r.Close(ctx)

	b := newFakeBackend()
	ep := defineCRUD(t, r, "Posts", b)

	other, err := Define(r, EndpointOptions[post]{
		Name:  "Drafts",
		Codec: c.JSON[post]{},
		Methods: Methods[post]{
			Post: func(_ context.Context, data post, inv *Invalidator) (post, error) {
				if err := inv.Invalidate("Posts"); err != nil {
					return post{}, err
				}
				return data, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("Define Drafts: %v", err)
	}

	before := snapshot(t, r)
	if _, err := ep.Post(ctx, post{Title: "noop"}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	mid := snapshot(t, r)
	for name, v := range before {
		if mid[name] != v {
			t.Fatalf("plain post bumped %q: %d -> %d", name, v, mid[name])
		}
	}

	if _, err := other.Post(ctx, post{Title: "publish"}); err != nil {
		t.Fatalf("Drafts post: %v", err)
	}
	after := snapshot(t, r)
	if after["Posts"] != mid["Posts"]+1 {
		t.Fatalf("Posts counter moved %d -> %d, want +1", mid["Posts"], after["Posts"])
	}
	if after["Drafts"] != mid["Drafts"] {
		t.Fatalf("Drafts counter moved without being touched: %d -> %d", mid["Drafts"], after["Drafts"])
	}
}

// TestUndeclaredMutationsFail: every missing method slot reports
// UnsupportedOperationError.
func TestUndeclaredMutationsFail(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newMemProvider(), nil)
	defer r.Close(ctx)

	b := newFakeBackend()
	ep := definePosts(t, r, b) // read-only

	var ue *UnsupportedOperationError
	if _, err := ep.Create(ctx, post{}); !errors.As(err, &ue) || ue.Op != "create" {
		t.Fatalf("create: %v", err)
	}
	if _, err := ep.Update(ctx, "1", post{}); !errors.As(err, &ue) || ue.Op != "update" {
		t.Fatalf("update: %v", err)
	}
	if err := ep.Delete(ctx, "1"); !errors.As(err, &ue) || ue.Op != "delete" {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ep.Post(ctx, post{}); !errors.As(err, &ue) || ue.Op != "post" {
		t.Fatalf("post: %v", err)
	}
}

// TestInvalidateUnknownEndpoint: naming an unregistered endpoint inside a
// mutation surfaces UnknownEndpointError at the call site.
func TestInvalidateUnknownEndpoint(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newMemProvider(), nil)
	defer r.Close(ctx)

	ep, err := Define(r, EndpointOptions[post]{
		Name:  "Posts",
		Codec: c.JSON[post]{},
		Methods: Methods[post]{
			Post: func(_ context.Context, data post, inv *Invalidator) (post, error) {
				return data, inv.Invalidate("Nope")
			},
		},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	_, err = ep.Post(ctx, post{})
	var ue *UnknownEndpointError
	if !errors.As(err, &ue) || ue.Name != "Nope" {
		t.Fatalf("expected UnknownEndpointError(Nope), got %v", err)
	}
}
