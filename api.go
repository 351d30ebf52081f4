package fetchcache

import (
	"context"
	"fmt"
	"time"

	c "github.com/unkn0wn-root/fetchcache/codec"
	gen "github.com/unkn0wn-root/fetchcache/genstore"
	pr "github.com/unkn0wn-root/fetchcache/provider"
)

// Provider and GenStore are re-exported so common setups only import the
// root package.
type (
	Provider = pr.Provider
	GenStore = gen.GenStore
)

// SetCostFunc computes the provider cost of one encoded entry (ristretto
// style stores use it; others ignore it). Default cost is 1.
type SetCostFunc func(key string, raw []byte) int64

// Options tune one registry. Only Provider is required; others have
// sensible defaults.
type Options struct {
	// Required
	Provider pr.Provider

	GenStore        gen.GenStore  // nil => LocalGenStore (in-process)
	Logger          Logger        // if nil, NopLogger is used
	Hooks           Hooks         // if nil, NopHooks is used
	MaskWidth       int           // usable change-mask bits, 1..64; 0 => 64
	ValueTTL        time.Duration // resolved entries; 0 => 10m
	ErrorTTL        time.Duration // cached rejections; 0 => until evicted
	CleanupInterval time.Duration // local genstore sweep; 0 => 1h
	GenRetention    time.Duration // local genstore retention; 0 => 30d
	Disabled        bool          // default false (enabled)
	ComputeSetCost  SetCostFunc   // default 1
}

const (
	defaultValueTTL     = 10 * time.Minute
	defaultSweep        = time.Hour
	defaultGenRetention = 30 * 24 * time.Hour
)

// New builds an empty registry. Endpoints are added with Define; the first
// configuration error (duplicate name, exhausted mask) is fatal to setup.
func New(opts Options) (*Registry, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("fetchcache: provider is required")
	}
	if opts.MaskWidth < 0 || opts.MaskWidth > 64 {
		return nil, fmt.Errorf("fetchcache: mask width must be 1..64, got %d", opts.MaskWidth)
	}

	r := &Registry{
		provider:  opts.Provider,
		enabled:   !opts.Disabled,
		valueTTL:  coalesce(opts.ValueTTL, defaultValueTTL),
		errorTTL:  opts.ErrorTTL,
		mask:      newBitmask(coalesce(opts.MaskWidth, 64)),
		endpoints: make(map[string]*endpointRef),
	}
	r.log = coalesce[Logger](opts.Logger, NopLogger{})
	r.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	if opts.ComputeSetCost != nil {
		r.computeSetCost = opts.ComputeSetCost
	} else {
		r.computeSetCost = func(_ string, _ []byte) int64 { return 1 }
	}

	if opts.GenStore != nil {
		r.gen = opts.GenStore
	} else {
		// default to in-process counters with periodic cleanup
		sweep := coalesce(opts.CleanupInterval, defaultSweep)
		retention := coalesce(opts.GenRetention, defaultGenRetention)
		r.gen = gen.NewLocalGenStore(sweep, retention)
		r.ownGen = true
	}

	r.hub = newHub(r)
	return r, nil
}

// Methods declares an endpoint's operations as typed optional slots; a nil
// slot means the operation is not supported and calling it fails with
// UnsupportedOperationError. Every mutation slot receives the call's
// Invalidator; invalidations recorded through it apply only if the method
// returns nil.
type Methods[V any] struct {
	// Read fetches the value for id (empty id for singleton/list
	// endpoints). Retry and timeout policy belong in here; once started, a
	// fetch is never aborted by the cache.
	Read func(ctx context.Context, id string) (V, error)

	// Create stores a new record and returns its id, optionally echoing
	// the created value (nil => the submitted data is cached).
	Create func(ctx context.Context, data V, inv *Invalidator) (Created[V], error)

	// Update replaces the record at id, optionally returning the fresh
	// value (nil => the submitted data is cached).
	Update func(ctx context.Context, id string, data V, inv *Invalidator) (*V, error)

	// Delete removes the record at id.
	Delete func(ctx context.Context, id string, inv *Invalidator) error

	// Post is a free-form mutation; its response is returned to the caller
	// and nothing is cached implicitly.
	Post func(ctx context.Context, data V, inv *Invalidator) (V, error)
}

// EndpointOptions configure one Define call.
type EndpointOptions[V any] struct {
	// Required
	Name  string
	Codec c.Codec[V]

	Methods Methods[V]

	ValueTTL time.Duration // 0 => registry default
	ErrorTTL time.Duration // 0 => registry default
}

// Define registers a named endpoint: one cache partition, one change-mask
// bit and the declared operations, composed into an Endpoint handle.
// Defining two endpoints with the same name fails with DuplicateNameError;
// exceeding the mask width fails with CapacityError.
func Define[V any](r *Registry, opts EndpointOptions[V]) (*Endpoint[V], error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("fetchcache: endpoint name is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("fetchcache: codec is required for endpoint %q", opts.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.endpoints[opts.Name]; exists {
		return nil, &DuplicateNameError{Name: opts.Name}
	}
	bit, err := r.mask.register(opts.Name)
	if err != nil {
		return nil, err
	}

	store := newCacheStore[V](
		r,
		opts.Name,
		opts.Codec,
		coalesce(opts.ValueTTL, r.valueTTL),
		coalesce(opts.ErrorTTL, r.errorTTL),
		opts.Methods.Read,
	)
	e := &Endpoint[V]{
		name:    opts.Name,
		bit:     bit,
		r:       r,
		store:   store,
		methods: opts.Methods,
	}
	r.endpoints[opts.Name] = &endpointRef{bit: bit, cache: store}
	r.order = append(r.order, opts.Name)
	return e, nil
}
