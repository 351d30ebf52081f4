package util

// SingletonID is the sentinel identifier for id-less endpoints
// (list/singleton reads). Callers pass an empty id; storage uses this.
const SingletonID = "@singleton"

// EntryKey returns the provider storage key for one (endpoint, id) entry.
func EntryKey(ns, id string) string {
	if id == "" {
		id = SingletonID
	}
	return "entry:" + ns + ":" + id
}

// EpochKey returns the genstore key holding an endpoint's epoch generation.
// Bumping it invalidates every entry of that endpoint at once.
func EpochKey(ns string) string {
	return "epoch:" + ns
}

// NotifyKey returns the genstore key holding an endpoint's notification counter.
func NotifyKey(ns string) string {
	return "notify:" + ns
}
