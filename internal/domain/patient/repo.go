package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists patients. Every read and write is scoped to owner, the
// account that created the patient.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, owner, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, owner, id uuid.UUID) error
	List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*Patient, int, error)
	// ListReports returns the patient's reports, newest first.
	ListReports(ctx context.Context, owner, patientID uuid.UUID) ([]*ReportSummary, error)
}
