package dao

import (
	"context"
)

// Service is the generic persistence boundary used by the orchestration
// services. Implementations must be safe for concurrent use; the engine
// assumes a single logical writer per flow id.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
