package fetchcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A cache entry was deleted by the cache on read.
	// reason ∈ {"corrupt", "epoch_mismatch", "gen_mismatch", "value_decode"}
	SelfHealEntry(storageKey, reason string)

	// A reader joined an already in-flight fetch for the same (endpoint, id).
	FetchShared(endpoint, id string)

	// A fetch settled with an error; the rejection is now cached.
	FetchRejected(endpoint, id string, err error)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// GenStore errors (snapshot or bump).
	// count is number of keys involved (1 for Snapshot/Bump, N for SnapshotMany).
	GenSnapshotError(count int, err error)
	GenBumpError(storageKey string, err error)

	// An endpoint-supplied mutation method rejected; nothing was applied.
	MutationRejected(endpoint, op string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHealEntry(string, string)           {}
func (NopHooks) FetchShared(string, string)             {}
func (NopHooks) FetchRejected(string, string, error)    {}
func (NopHooks) ProviderSetRejected(string)             {}
func (NopHooks) GenSnapshotError(int, error)            {}
func (NopHooks) GenBumpError(string, error)             {}
func (NopHooks) MutationRejected(string, string, error) {}
