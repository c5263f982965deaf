package magiclink

import (
	"context"
	"sync"
)

// InMemRepository implements Repository in memory. The record does not
// survive process termination, so this is only suitable for tests and
// development.
type InMemRepository struct {
	continuation *Continuation
	mutex        sync.Mutex
}

// NewInMemRepository creates an in-memory continuation repository.
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{}
}

func (r *InMemRepository) Put(ctx context.Context, continuation Continuation) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	c := continuation
	r.continuation = &c
	return nil
}

func (r *InMemRepository) Take(ctx context.Context) (*Continuation, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	continuation := r.continuation
	r.continuation = nil
	return continuation, nil
}

func (r *InMemRepository) Peek(ctx context.Context) (*Continuation, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.continuation, nil
}
