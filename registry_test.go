package fetchcache

import (
	"context"
	"errors"
	"fmt"
	"testing"

	c "github.com/unkn0wn-root/fetchcache/codec"
)

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error without provider")
	}
	if _, err := New(Options{Provider: newMemProvider(), MaskWidth: 65}); err == nil {
		t.Fatalf("expected error for mask width > 64")
	}
	if _, err := New(Options{Provider: newMemProvider(), MaskWidth: -1}); err == nil {
		t.Fatalf("expected error for negative mask width")
	}
}

func TestDefineRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newMemProvider(), nil)
	defer r.Close(ctx)

	b := newFakeBackend()
	definePosts(t, r, b)

	_, err := Define(r, EndpointOptions[post]{Name: "Posts", Codec: c.JSON[post]{}})
	var de *DuplicateNameError
	if !errors.As(err, &de) || de.Name != "Posts" {
		t.Fatalf("expected DuplicateNameError(Posts), got %v", err)
	}
}

func TestDefineExhaustsMask(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newMemProvider(), func(o *Options) { o.MaskWidth = 2 })
	defer r.Close(ctx)

	for i := 0; i < 2; i++ {
		_, err := Define(r, EndpointOptions[post]{
			Name:  fmt.Sprintf("EP%d", i),
			Codec: c.JSON[post]{},
		})
		if err != nil {
			t.Fatalf("Define %d: %v", i, err)
		}
	}

	_, err := Define(r, EndpointOptions[post]{Name: "Overflow", Codec: c.JSON[post]{}})
	var ce *CapacityError
	if !errors.As(err, &ce) || ce.Width != 2 {
		t.Fatalf("expected CapacityError(2), got %v", err)
	}
}

func TestBitsAssignedInRegistrationOrder(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newMemProvider(), nil)
	defer r.Close(ctx)

	names := []string{"A", "B", "C"}
	eps := make([]*Endpoint[post], len(names))
	for i, n := range names {
		ep, err := Define(r, EndpointOptions[post]{Name: n, Codec: c.JSON[post]{}})
		if err != nil {
			t.Fatalf("Define %s: %v", n, err)
		}
		eps[i] = ep
	}

	for i, want := range []uint64{1, 2, 4} {
		if got := eps[i].Bit(); got != want {
			t.Fatalf("endpoint %s bit = %d, want %d", names[i], got, want)
		}
		bit, ok := r.Bit(names[i])
		if !ok || bit != want {
			t.Fatalf("Registry.Bit(%s) = %d,%v, want %d", names[i], bit, ok, want)
		}
	}

	got := r.Names()
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("Names() = %v", got)
	}
	if _, ok := r.Bit("missing"); ok {
		t.Fatalf("Bit on unknown name should report !ok")
	}
}

func TestDiff(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, newMemProvider(), nil)
	defer r.Close(ctx)

	for _, n := range []string{"A", "B"} {
		if _, err := Define(r, EndpointOptions[post]{Name: n, Codec: c.JSON[post]{}}); err != nil {
			t.Fatalf("Define %s: %v", n, err)
		}
	}

	prev := NotificationState{"A": 0, "B": 0}
	if d := r.Diff(prev, prev.Clone()); d != 0 {
		t.Fatalf("equal states diffed to %d", d)
	}
	if d := r.Diff(prev, NotificationState{"A": 1, "B": 0}); d != 1 {
		t.Fatalf("A-only change diffed to %d, want 1", d)
	}
	if d := r.Diff(prev, NotificationState{"A": 0, "B": 3}); d != 2 {
		t.Fatalf("B-only change diffed to %d, want 2", d)
	}
	if d := r.Diff(prev, NotificationState{"A": 5, "B": 7}); d != 3 {
		t.Fatalf("both-change diffed to %d, want 3", d)
	}
	// unknown names in a snapshot carry no bit
	if d := r.Diff(prev, NotificationState{"A": 0, "B": 0, "Ghost": 9}); d != 0 {
		t.Fatalf("unregistered name contributed %d", d)
	}
}
