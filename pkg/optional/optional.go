// Package optional provides a tri-state field that distinguishes an absent
// value from an explicit null and from a concrete value.
//
// Absent fields fall through to the next configuration source; null fields
// are an explicit clear and stop the fall-through where the caller checks
// presence rather than value.
package optional

import (
	"bytes"
	"encoding/json"
)

// Field holds an optional value of T.
//
// The zero value is absent.
type Field[T any] struct {
	present bool
	null    bool
	value   T
}

// Unset returns an absent field.
func Unset[T any]() Field[T] {
	return Field[T]{}
}

// Null returns a present field holding an explicit null.
func Null[T any]() Field[T] {
	return Field[T]{present: true, null: true}
}

// Of returns a present field holding v.
func Of[T any](v T) Field[T] {
	return Field[T]{present: true, value: v}
}

// FromPtr returns Null for a nil pointer and Of(*p) otherwise.
func FromPtr[T any](p *T) Field[T] {
	if p == nil {
		return Null[T]()
	}
	return Of(*p)
}

// IsSet reports whether the field is present, including explicit null.
func (f Field[T]) IsSet() bool {
	return f.present
}

// IsNull reports whether the field is present and null.
func (f Field[T]) IsNull() bool {
	return f.present && f.null
}

// HasValue reports whether the field holds a concrete value.
func (f Field[T]) HasValue() bool {
	return f.present && !f.null
}

// Get returns the value and whether one is held.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.HasValue()
}

// ValueOr returns the held value or fallback.
func (f Field[T]) ValueOr(fallback T) T {
	if f.HasValue() {
		return f.value
	}
	return fallback
}

// Ptr returns a pointer to a copy of the value, or nil.
func (f Field[T]) Ptr() *T {
	if !f.HasValue() {
		return nil
	}
	v := f.value
	return &v
}

// IsZero lets encoding/json drop absent fields tagged omitzero.
func (f Field[T]) IsZero() bool {
	return !f.present
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.HasValue() {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON is only invoked for keys present in the document, so a
// decoded field is always set.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Of(v)
	return nil
}

// Equal compares presence, nullness and value.
func Equal[T comparable](a, b Field[T]) bool {
	if a.present != b.present {
		return false
	}
	if !a.present {
		return true
	}
	if a.null || b.null {
		return a.null == b.null
	}
	return a.value == b.value
}

// FirstOf evaluates providers in order and returns the first field that holds
// a value. Null and absent fields both fall through. When no provider yields
// a value the result of the last provider is returned unchanged, so a chain
// can end in an explicit null.
func FirstOf[T any](providers ...func() Field[T]) Field[T] {
	var last Field[T]
	for _, p := range providers {
		last = p()
		if last.HasValue() {
			return last
		}
	}
	return last
}

// Const adapts a fixed field to a FirstOf provider.
func Const[T any](f Field[T]) func() Field[T] {
	return func() Field[T] { return f }
}
