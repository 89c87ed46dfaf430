package questionnaire

import (
	"context"

	"github.com/google/uuid"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/pkg/legacyfield"
)

type Repository interface {
	Create(ctx context.Context, q *Questionnaire) error
	GetByID(ctx context.Context, id uuid.UUID) (*Questionnaire, error)
	GetByResidentID(ctx context.Context, residentID string) (*Questionnaire, error)
	ListByResidentIDs(ctx context.Context, residentIDs []string) ([]*Questionnaire, error)
	ExistsResidentID(ctx context.Context, residentID string) (bool, error)
	Update(ctx context.Context, q *Questionnaire) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns every questionnaire, newest first. Filtering and sorting
	// happen in memory.
	List(ctx context.Context) ([]*Questionnaire, error)
	ListNeedingBackfill(ctx context.Context) ([]*Questionnaire, error)
	SetReferrer(ctx context.Context, id uuid.UUID, r legacyfield.Referrer) error
}
