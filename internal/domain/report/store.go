package report

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence contract of the synchronizer. Section getters
// return nil without error when the row does not exist yet. Replace*
// methods delete the report's rows and then insert the given ones as two
// separate writes.
type Store interface {
	CreateReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id uuid.UUID) (*Report, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error

	GetHistory(ctx context.Context, reportID uuid.UUID) (*History, error)
	GetObservation(ctx context.Context, reportID uuid.UUID) (*ClinicalObservation, error)
	ListInstruments(ctx context.Context, reportID uuid.UUID) ([]Instrument, error)
	ListCriteria(ctx context.Context, reportID uuid.UUID) ([]CriterionRow, error)
	ListDifferentials(ctx context.Context, reportID uuid.UUID) ([]DifferentialRow, error)

	UpsertHistory(ctx context.Context, reportID uuid.UUID, h History) error
	UpsertObservation(ctx context.Context, reportID uuid.UUID, o ClinicalObservation) error
	ReplaceInstruments(ctx context.Context, reportID uuid.UUID, list []Instrument) error
	ReplaceCriteria(ctx context.Context, reportID uuid.UUID, met []Criterion) error
	ReplaceDifferentials(ctx context.Context, reportID uuid.UUID, rows []DifferentialRow) error
}
