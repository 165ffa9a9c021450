package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/blua/laudos/internal/platform/postgrest"
)

type repoREST struct{ c *postgrest.Client }

func NewRepoREST(c *postgrest.Client) Repository {
	return &repoREST{c: c}
}

func (r *repoREST) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	var out []Patient
	if err := r.c.Insert(ctx, "patients", restRow(p), &out); err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	if len(out) == 1 {
		p.CreatedAt = out[0].CreatedAt
	}
	return nil
}

// restRow maps the empty birth date to SQL NULL.
func restRow(p *Patient) map[string]interface{} {
	row := map[string]interface{}{
		"id":            p.ID,
		"full_name":     p.FullName,
		"date_of_birth": nil,
		"gender":        p.Gender,
		"phone":         p.Phone,
		"email":         p.Email,
		"address":       p.Address,
		"created_by":    p.CreatedBy,
	}
	if p.DateOfBirth != "" {
		row["date_of_birth"] = p.DateOfBirth
	}
	return row
}

func (r *repoREST) GetByID(ctx context.Context, owner, id uuid.UUID) (*Patient, error) {
	var out []*Patient
	f := postgrest.Where().Eq("id", id.String()).Eq("created_by", owner.String()).Limit(1)
	if err := r.c.Select(ctx, "patients", f, &out); err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out[0], nil
}

func (r *repoREST) Update(ctx context.Context, p *Patient) error {
	row := restRow(p)
	delete(row, "id")
	delete(row, "created_by")
	var out []Patient
	f := postgrest.Where().Eq("id", p.ID.String()).Eq("created_by", p.CreatedBy.String())
	if err := r.c.Update(ctx, "patients", f, row, &out); err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	if len(out) == 0 {
		return ErrNotFound
	}
	p.CreatedAt = out[0].CreatedAt
	return nil
}

func (r *repoREST) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, owner, id); err != nil {
		return err
	}
	f := postgrest.Where().Eq("id", id.String()).Eq("created_by", owner.String())
	if err := r.c.Delete(ctx, "patients", f); err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	return nil
}

func (r *repoREST) List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	out := []*Patient{}
	f := postgrest.Where().Eq("created_by", owner.String()).Order("created_at", true).Limit(limit).Offset(offset)
	total, err := r.c.SelectCount(ctx, "patients", f, &out)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	return out, total, nil
}

func (r *repoREST) ListReports(ctx context.Context, owner, patientID uuid.UUID) ([]*ReportSummary, error) {
	// The patient lookup enforces ownership; reports carry no owner column
	// of their own beyond the authoring professional.
	if _, err := r.GetByID(ctx, owner, patientID); err != nil {
		return nil, err
	}
	out := []*ReportSummary{}
	f := postgrest.Where().Select("id", "title", "status", "created_at").
		Eq("patient_id", patientID.String()).Order("created_at", true)
	if err := r.c.Select(ctx, "reports", f, &out); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}
