package inference

import (
	"context"
	"fmt"
	"sync"
)

// Pool hands out a fixed set of resources, such as sessions, to concurrent
// callers. Acquire blocks until one is free or the context ends.
type Pool[T any] struct {
	items   chan T
	destroy func(T)
	size    int

	mu     sync.Mutex
	closed bool
}

// NewPool creates size resources with create. If any creation fails, the
// resources created so far are destroyed and the error is returned.
//
// Arguments:
//   - size: The number of resources. Must be positive.
//   - create: Creates the i-th resource.
//   - destroy: Releases a resource on Close.
//
// Returns:
//   - *Pool[T]: The pool.
//   - error: An error if size is invalid or creation fails.
func NewPool[T any](size int, create func(i int) (T, error), destroy func(T)) (*Pool[T], error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}
	p := &Pool[T]{
		items:   make(chan T, size),
		destroy: destroy,
		size:    size,
	}
	for i := 0; i < size; i++ {
		item, err := create(i)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to initialize pool item %d: %w", i, err)
		}
		p.items <- item
	}
	return p, nil
}

// Size returns the number of resources managed by the pool.
func (p *Pool[T]) Size() int {
	return p.size
}

// Acquire takes a resource from the pool.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T
	select {
	case item, ok := <-p.items:
		if !ok {
			return zero, fmt.Errorf("pool is closed")
		}
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Release returns a resource to the pool. Resources released after Close are destroyed.
func (p *Pool[T]) Release(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		if p.destroy != nil {
			p.destroy(item)
		}
		return
	}
	p.items <- item
}

// Close destroys every idle resource. Resources still acquired are destroyed on Release.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.items)
	for item := range p.items {
		if p.destroy != nil {
			p.destroy(item)
		}
	}
}

// SessionPool is a pool of ONNX sessions for the same model.
type SessionPool = Pool[*Session]

// NewSessionPool creates size identical sessions.
func NewSessionPool(size int, args NewSessionArgs) (*SessionPool, error) {
	return NewPool(size, func(int) (*Session, error) {
		return NewSession(args)
	}, func(s *Session) {
		s.Close()
	})
}
