package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blua/laudos/internal/platform/postgrest"
)

type storeREST struct{ c *postgrest.Client }

func NewStoreREST(c *postgrest.Client) Store {
	return &storeREST{c: c}
}

func byReport(id uuid.UUID) *postgrest.Filter {
	return postgrest.Where().Eq("report_id", id.String())
}

func (s *storeREST) CreateReport(ctx context.Context, r *Report) error {
	r.ID = uuid.New()
	row := map[string]interface{}{
		"id":              r.ID,
		"patient_id":      r.PatientID,
		"professional_id": r.ProfessionalID,
		"title":           r.Title,
		"status":          r.Status,
	}
	var out []Report
	if err := s.c.Insert(ctx, "reports", row, &out); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	if len(out) == 1 {
		r.CreatedAt, r.UpdatedAt = out[0].CreatedAt, out[0].UpdatedAt
	}
	return nil
}

func (s *storeREST) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	var out []*Report
	if err := s.c.Select(ctx, "reports", postgrest.Where().Eq("id", id.String()).Limit(1), &out); err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out[0], nil
}

func (s *storeREST) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	var out []Report
	patch := map[string]interface{}{"status": status, "updated_at": time.Now().UTC()}
	if err := s.c.Update(ctx, "reports", postgrest.Where().Eq("id", id.String()), patch, &out); err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	if len(out) == 0 {
		return ErrNotFound
	}
	return nil
}

type historyRow struct {
	ReportID uuid.UUID `json:"report_id"`
	History
}

type observationRow struct {
	ReportID uuid.UUID `json:"report_id"`
	ClinicalObservation
}

type instrumentRow struct {
	ID              *uuid.UUID `json:"id,omitempty"`
	ReportID        uuid.UUID  `json:"report_id"`
	InstrumentName  string     `json:"instrument_name"`
	ApplicationDate string     `json:"application_date"`
	ScoresResults   string     `json:"scores_results"`
	Position        int        `json:"position"`
}

func (s *storeREST) GetHistory(ctx context.Context, reportID uuid.UUID) (*History, error) {
	var out []historyRow
	if err := s.c.Select(ctx, "report_history", byReport(reportID).Limit(1), &out); err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0].History, nil
}

func (s *storeREST) GetObservation(ctx context.Context, reportID uuid.UUID) (*ClinicalObservation, error) {
	var out []observationRow
	if err := s.c.Select(ctx, "clinical_observations", byReport(reportID).Limit(1), &out); err != nil {
		return nil, fmt.Errorf("get clinical observation: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0].ClinicalObservation, nil
}

func (s *storeREST) ListInstruments(ctx context.Context, reportID uuid.UUID) ([]Instrument, error) {
	out := []Instrument{}
	f := byReport(reportID).Select("id", "instrument_name", "application_date", "scores_results").Order("position", false)
	if err := s.c.Select(ctx, "applied_instruments", f, &out); err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	return out, nil
}

func (s *storeREST) ListCriteria(ctx context.Context, reportID uuid.UUID) ([]CriterionRow, error) {
	var out []CriterionRow
	if err := s.c.Select(ctx, "diagnostic_criteria", byReport(reportID).Select("criterion_code", "is_met"), &out); err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	return out, nil
}

func (s *storeREST) ListDifferentials(ctx context.Context, reportID uuid.UUID) ([]DifferentialRow, error) {
	var out []DifferentialRow
	f := byReport(reportID).Select("type", "condition_name", "position").Order("type", false).Order("position", false)
	if err := s.c.Select(ctx, "differential_diagnoses", f, &out); err != nil {
		return nil, fmt.Errorf("list differentials: %w", err)
	}
	return out, nil
}

func (s *storeREST) UpsertHistory(ctx context.Context, reportID uuid.UUID, h History) error {
	if err := s.c.Upsert(ctx, "report_history", "report_id", []historyRow{{reportID, h}}, nil); err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}
	return nil
}

func (s *storeREST) UpsertObservation(ctx context.Context, reportID uuid.UUID, o ClinicalObservation) error {
	if err := s.c.Upsert(ctx, "clinical_observations", "report_id", []observationRow{{reportID, o}}, nil); err != nil {
		return fmt.Errorf("upsert clinical observation: %w", err)
	}
	return nil
}

func (s *storeREST) clear(ctx context.Context, table string, reportID uuid.UUID) error {
	if err := s.c.Delete(ctx, table, byReport(reportID)); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	return nil
}

func (s *storeREST) ReplaceInstruments(ctx context.Context, reportID uuid.UUID, list []Instrument) error {
	if err := s.clear(ctx, "applied_instruments", reportID); err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}
	rows := make([]instrumentRow, len(list))
	for i, in := range list {
		rows[i] = instrumentRow{
			ID:              persistedID(in),
			ReportID:        reportID,
			InstrumentName:  in.InstrumentName,
			ApplicationDate: in.ApplicationDate,
			ScoresResults:   in.ScoresResults,
			Position:        i,
		}
	}
	if err := s.c.Insert(ctx, "applied_instruments", rows, nil); err != nil {
		return fmt.Errorf("insert instruments: %w", err)
	}
	return nil
}

func (s *storeREST) ReplaceCriteria(ctx context.Context, reportID uuid.UUID, met []Criterion) error {
	if err := s.clear(ctx, "diagnostic_criteria", reportID); err != nil {
		return err
	}
	if len(met) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, len(met))
	for i, c := range met {
		rows[i] = map[string]interface{}{"report_id": reportID, "criterion_code": c, "is_met": true}
	}
	if err := s.c.Insert(ctx, "diagnostic_criteria", rows, nil); err != nil {
		return fmt.Errorf("insert criteria: %w", err)
	}
	return nil
}

func (s *storeREST) ReplaceDifferentials(ctx context.Context, reportID uuid.UUID, rows []DifferentialRow) error {
	if err := s.clear(ctx, "differential_diagnoses", reportID); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	out := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		out[i] = map[string]interface{}{
			"report_id":      reportID,
			"type":           r.Type,
			"condition_name": r.ConditionName,
			"position":       r.Position,
		}
	}
	if err := s.c.Insert(ctx, "differential_diagnoses", out, nil); err != nil {
		return fmt.Errorf("insert differentials: %w", err)
	}
	return nil
}
