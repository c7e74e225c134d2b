package validator

import "sync"

// Deferred is a memoized thunk: the function runs at most once, on the first
// Get, and every later Get returns the same value. It is safe for concurrent
// use.
type Deferred[T any] struct {
	get func() T
}

// Defer wraps f in a Deferred.
func Defer[T any](f func() T) Deferred[T] {
	return Deferred[T]{get: sync.OnceValue(f)}
}

// Get forces the thunk.
func (d Deferred[T]) Get() T {
	if d.get == nil {
		var zero T
		return zero
	}
	return d.get()
}
