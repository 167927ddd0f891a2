package dao

import (
	"context"
)

// Service is a keyed entity store. Load and Delete report a missing key with
// ErrNotFound.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}

// Creator is implemented by stores able to insert an entity only when its key
// is absent. Create returns ErrAlreadyExists otherwise; the check and the
// insert are atomic.
type Creator[T any] interface {
	Create(ctx context.Context, t *T) error
}
