// Package codec serializes endpoint values to the byte payloads stored
// inside fetchcache's wire-framed cache entries.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
