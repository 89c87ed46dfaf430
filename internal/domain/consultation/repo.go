package consultation

import (
	"context"

	"github.com/google/uuid"
)

// DateRange bounds a query by consultation or appointment date, inclusive.
// Empty bounds are open.
type DateRange struct {
	From string
	To   string
}

type Repository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)
	Update(ctx context.Context, c *Consultation) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, r DateRange) ([]*Consultation, error)
	ListByResidentID(ctx context.Context, residentID string) ([]*Consultation, error)
	ListAppointments(ctx context.Context, r DateRange) ([]*Consultation, error)
	RecordContact(ctx context.Context, id uuid.UUID) (*Consultation, error)
}
