/*
Package stream holds generic channel stages. Every stage closes its
output when its input closes or ctx is done.
*/
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
)

// Slice emits the elements of in, in order.
func Slice[T any](ctx context.Context, in []T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for _, element := range in {
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

// NDJSON decodes consecutive JSON values from r.
// A value that decodes into the wrong shape is passed to onError and
// skipped. Malformed JSON ends the stream after onError, since the
// decoder cannot resynchronize. A nil onError ignores errors.
func NDJSON[T any](ctx context.Context, r io.Reader, onError func(error)) <-chan T {
	if onError == nil {
		onError = func(error) {}
	}
	out := make(chan T)
	go func() {
		defer close(out)
		dec := json.NewDecoder(r)
		for {
			var element T
			if err := dec.Decode(&element); err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				onError(err)
				var typeErr *json.UnmarshalTypeError
				if errors.As(err, &typeErr) {
					continue
				}
				return
			}
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

// Filter passes the elements for which predicate is true.
func Filter[T any](ctx context.Context, predicate func(T) bool, in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for element := range in {
			if !predicate(element) {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

// Transform maps each element through fn.
func Transform[I any, O any](ctx context.Context, fn func(I) O, in <-chan I) <-chan O {
	out := make(chan O)
	go func() {
		defer close(out)
		for element := range in {
			select {
			case <-ctx.Done():
				return
			case out <- fn(element):
			}
		}
	}()
	return out
}

// Collect drains in into a slice. It returns early, with what it has,
// once ctx is done.
func Collect[T any](ctx context.Context, in <-chan T) []T {
	out := []T{}
	for {
		select {
		case <-ctx.Done():
			return out
		case element, ok := <-in:
			if !ok {
				return out
			}
			out = append(out, element)
		}
	}
}

// Batch groups elements from in into slices of at most size elements.
// The last batch may be short.
func Batch[T any](ctx context.Context, size int, in <-chan T) <-chan []T {
	if size < 1 {
		size = 1
	}
	out := make(chan []T)
	go func() {
		defer close(out)
		batch := make([]T, 0, size)
		flush := func() bool {
			if len(batch) == 0 {
				return true
			}
			select {
			case <-ctx.Done():
				return false
			case out <- batch:
			}
			batch = make([]T, 0, size)
			return true
		}
		for element := range in {
			batch = append(batch, element)
			if len(batch) == size && !flush() {
				return
			}
		}
		flush()
	}()
	return out
}

// Tap calls fn on each element as it passes through.
func Tap[T any](ctx context.Context, fn func(T), in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for element := range in {
			fn(element)
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}
