package magiclink

import "context"

// Repository stores the single magic-link continuation record.
type Repository interface {
	// Put persists the continuation, overwriting any previous record.
	Put(ctx context.Context, continuation Continuation) error

	// Take reads and deletes the continuation in one step. When no record
	// exists it returns (nil, nil); a second Take is a no-op, not an error.
	Take(ctx context.Context) (*Continuation, error)

	// Peek reads the continuation without consuming it. Returns (nil, nil)
	// when no record exists.
	Peek(ctx context.Context) (*Continuation, error)
}
