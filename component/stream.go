package component

import (
	"context"
	"iter"
)

// Stream is a lazily produced, finite or caller-bounded sequence. The
// consumer stops production early by returning false from yield (a break in
// a range loop). A stream is not restartable; invoke the component again to
// get a fresh one.
type Stream = iter.Seq2[any, error]

// StreamOf adapts a typed sequence into a Stream.
func StreamOf[T any](seq iter.Seq[T]) Stream {
	return func(yield func(any, error) bool) {
		for v := range seq {
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Collect consumes s until it ends, limit items have been read (limit > 0),
// ctx is cancelled, or an item carries an error.
func Collect(ctx context.Context, s Stream, limit int) ([]any, error) {
	var out []any
	for v, err := range s {
		if err != nil {
			return out, err
		}
		out = append(out, v)
		if limit > 0 && len(out) >= limit {
			break
		}
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
	}
	return out, nil
}
