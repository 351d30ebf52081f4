// Package fetchcache implements a client-side data-fetching cache: named
// endpoints (read/create/update/delete/post) with per-(endpoint, id)
// three-state cache entries, in-flight fetch deduplication and fine-grained
// change notification after writes.
//
// Components:
//   - Provider: byte store with TTL (e.g. Ristretto, BigCache, Redis).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - GenStore: monotonic counters per storage key. Local (in-process) by
//     default, optional Redis implementation for multi-replica setups.
//   - Registry: one endpoint namespace; assigns each endpoint a change-mask
//     bit and owns the notification hub.
//
// Keys:
//
//	entry:<endpoint>:<id>  - cache entries (singleton reads use "@singleton")
//	epoch:<endpoint>       - endpoint epoch; bumping clears the whole endpoint
//	notify:<endpoint>      - notification counter; bumped after mutations
//
// Read protocol: a read returns an explicit Outcome - Ready with a value,
// Pending with the shared handle of the one in-flight fetch for that id, or
// Failed with the cached rejection. Concurrent readers of a pending id all
// receive the same handle; one network call is made. A failed fetch stays
// cached until evicted (no implicit retry).
//
// Mutation protocol: create/update/delete/post run the endpoint-supplied
// method with an Invalidator transaction. On success the recorded evictions
// apply, direct cache writes land, and the notification counters of every
// touched endpoint bump - strictly in that order, strictly before the call
// returns. On failure nothing is applied and the cause propagates.
//
// Cached values are stamped with the endpoint epoch and key generation
// observed when their fetch started; a read validates both and deletes stale
// or corrupt entries (self-heal), so whole-endpoint eviction is a single
// epoch bump.
package fetchcache
