package pricing

import "encoding/json"

// Result is either a provider answer or the reason it could not be had.
// It is never filled with a locally computed value.
type Result[T any] struct {
	value  T
	reason string
	ok     bool
}

// Available wraps a provider answer.
func Available[T any](v T) Result[T] { return Result[T]{value: v, ok: true} }

// Unavailable records why no answer exists.
func Unavailable[T any](reason string) Result[T] { return Result[T]{reason: reason} }

// Get returns the value and whether it is present.
func (r Result[T]) Get() (T, bool) { return r.value, r.ok }

// OK reports whether the provider answered.
func (r Result[T]) OK() bool { return r.ok }

// Reason is empty for available results.
func (r Result[T]) Reason() string { return r.reason }

type unavailableBody struct {
	Unavailable bool   `json:"unavailable"`
	Message     string `json:"message"`
}

// MarshalJSON writes the value itself, or {"unavailable": true, "message": ...}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.ok {
		return json.Marshal(r.value)
	}
	return json.Marshal(unavailableBody{Unavailable: true, Message: r.reason})
}
