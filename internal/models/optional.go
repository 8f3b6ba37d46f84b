package models

import "encoding/json"

// Optional distinguishes a field that was omitted from one explicitly set,
// including one explicitly set to null.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get returns the value and whether it was present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// Apply copies the value into dst when present.
func (o Optional[T]) Apply(dst *T) bool {
	if !o.Set {
		return false
	}
	*dst = o.Value
	return true
}

// UnmarshalJSON marks the field present. It is only invoked for keys that
// appear in the payload.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON renders absent values as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Any exposes the value untyped, for validators and loggers.
func (o Optional[T]) Any() (any, bool) {
	return o.Value, o.Set
}
