// Package promise provides a single-resolution asynchronous value.
// A Promise is created unresolved, settled exactly once with Resolve or
// Reject, and awaited by any number of goroutines.
package promise

import (
	"context"
	"sync"
)

// Promise is a write-once asynchronous value of type T.
// The zero value is not usable; create instances with New.
type Promise[T any] struct {
	mu   sync.Mutex
	done chan struct{}
	val  T
	err  error
}

// New creates an unresolved Promise.
func New[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Resolved creates a Promise already settled with the given value.
func Resolved[T any](val T) *Promise[T] {
	p := New[T]()
	p.Resolve(val)
	return p
}

// Rejected creates a Promise already settled with the given error.
func Rejected[T any](err error) *Promise[T] {
	p := New[T]()
	p.Reject(err)
	return p
}

// Resolve settles the promise with val. Only the first settlement wins;
// later Resolve or Reject calls are no-ops and return false.
func (p *Promise[T]) Resolve(val T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
		return false
	default:
	}
	p.val = val
	close(p.done)
	return true
}

// Reject settles the promise with err. Only the first settlement wins;
// later Resolve or Reject calls are no-ops and return false.
func (p *Promise[T]) Reject(err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
		return false
	default:
	}
	p.err = err
	close(p.done)
	return true
}

// Done returns a channel that is closed once the promise is settled.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the promise settles or ctx is cancelled.
// On cancellation the context error is returned and the promise
// remains unsettled.
func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result probes the promise without blocking. The third return reports
// whether the promise has settled; val and err are only meaningful when
// it is true.
func (p *Promise[T]) Result() (val T, err error, settled bool) {
	select {
	case <-p.done:
		return p.val, p.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// All waits for every promise to settle and returns their values in
// argument order. Promises are awaited sequentially, so a rejection is
// observed once the wait reaches it; context cancellation aborts the
// wait wherever it stands. Either error is returned as-is.
func All[T any](ctx context.Context, ps ...*Promise[T]) ([]T, error) {
	vals := make([]T, len(ps))
	for i, p := range ps {
		v, err := p.Await(ctx)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
