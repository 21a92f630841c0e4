package component

import (
	"context"
	"io"
	"sync"
)

// Lazy is a memoized factory for an external handle owned by one instance.
// The handle is built on the first successful Get; failures are not cached
// so a later Run can try again.
type Lazy[T any] struct {
	mu     sync.Mutex
	build  func(ctx context.Context) (T, error)
	val    T
	loaded bool
}

// NewLazy returns a Lazy that builds its value with fn.
func NewLazy[T any](fn func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{build: fn}
}

// Get returns the handle, building it on first use.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return l.val, nil
	}
	v, err := l.build(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	l.val = v
	l.loaded = true
	return v, nil
}

// Set installs a prebuilt handle, bypassing the factory.
func (l *Lazy[T]) Set(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.val = v
	l.loaded = true
}

// Loaded reports whether the handle has been built.
func (l *Lazy[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Close releases the handle if it was built and implements io.Closer.
func (l *Lazy[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		return nil
	}
	var zero T
	v := l.val
	l.val = zero
	l.loaded = false
	if c, ok := any(v).(io.Closer); ok {
		return c.Close()
	}
	return nil
}
