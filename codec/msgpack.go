package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack serializes endpoint values with vmihailenco/msgpack/v5. The zero
// value is ready to use.
//
// Compact and fast, a good fit for high-churn endpoints where entry size
// drives provider cost. Mind struct tag differences vs JSON; use
// `msgpack:"fieldName"` tags for explicit control.
type Msgpack[V any] struct{}

func (Msgpack[V]) Encode(v V) ([]byte, error) {
	return msgpack.Marshal(v)
}
func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}
