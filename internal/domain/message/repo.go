package message

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateRequest(ctx context.Context, r *Request) error
	GetRequest(ctx context.Context, id uuid.UUID) (*Request, error)
	StorageReader
}

// StorageReader returns the latest stored message of each listed request
// that has one.
type StorageReader interface {
	Stored(ctx context.Context, requestIDs []uuid.UUID) ([]*Stored, error)
}
