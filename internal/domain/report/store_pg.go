package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blua/laudos/internal/platform/db"
)

type storePG struct{ pool *pgxpool.Pool }

func NewStorePG(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

func (s *storePG) CreateReport(ctx context.Context, r *Report) error {
	r.ID = uuid.New()
	err := db.Pick(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO reports (id, patient_id, professional_id, title, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		r.ID, r.PatientID, r.ProfessionalID, r.Title, r.Status,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *storePG) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	var r Report
	err := db.Pick(ctx, s.pool).QueryRow(ctx, `
		SELECT id, patient_id, professional_id, title, status, created_at, updated_at
		FROM reports WHERE id = $1`, id,
	).Scan(&r.ID, &r.PatientID, &r.ProfessionalID, &r.Title, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &r, nil
}

func (s *storePG) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := db.Pick(ctx, s.pool).Exec(ctx,
		`UPDATE reports SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *storePG) GetHistory(ctx context.Context, reportID uuid.UUID) (*History, error) {
	var h History
	err := db.Pick(ctx, s.pool).QueryRow(ctx, `
		SELECT pregnancy_complications, developmental_milestones, medical_history, family_history
		FROM report_history WHERE report_id = $1`, reportID,
	).Scan(&h.PregnancyComplications, &h.DevelopmentalMilestones, &h.MedicalHistory, &h.FamilyHistory)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return &h, nil
}

func (s *storePG) GetObservation(ctx context.Context, reportID uuid.UUID) (*ClinicalObservation, error) {
	var o ClinicalObservation
	err := db.Pick(ctx, s.pool).QueryRow(ctx, `
		SELECT verbal_communication, nonverbal_communication, social_interaction,
			repetitive_behaviors, sensory_sensitivities
		FROM clinical_observations WHERE report_id = $1`, reportID,
	).Scan(&o.VerbalCommunication, &o.NonverbalCommunication, &o.SocialInteraction,
		&o.RepetitiveBehaviors, &o.SensorySensitivities)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clinical observation: %w", err)
	}
	return &o, nil
}

func (s *storePG) ListInstruments(ctx context.Context, reportID uuid.UUID) ([]Instrument, error) {
	rows, err := db.Pick(ctx, s.pool).Query(ctx, `
		SELECT id::text, instrument_name, application_date, scores_results
		FROM applied_instruments WHERE report_id = $1 ORDER BY position`, reportID)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()
	out := []Instrument{}
	for rows.Next() {
		var in Instrument
		if err := rows.Scan(&in.ID, &in.InstrumentName, &in.ApplicationDate, &in.ScoresResults); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *storePG) ListCriteria(ctx context.Context, reportID uuid.UUID) ([]CriterionRow, error) {
	rows, err := db.Pick(ctx, s.pool).Query(ctx,
		`SELECT criterion_code, is_met FROM diagnostic_criteria WHERE report_id = $1`, reportID)
	if err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	defer rows.Close()
	var out []CriterionRow
	for rows.Next() {
		var r CriterionRow
		if err := rows.Scan(&r.Code, &r.IsMet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *storePG) ListDifferentials(ctx context.Context, reportID uuid.UUID) ([]DifferentialRow, error) {
	rows, err := db.Pick(ctx, s.pool).Query(ctx, `
		SELECT type, condition_name, position FROM differential_diagnoses
		WHERE report_id = $1 ORDER BY type, position`, reportID)
	if err != nil {
		return nil, fmt.Errorf("list differentials: %w", err)
	}
	defer rows.Close()
	var out []DifferentialRow
	for rows.Next() {
		var r DifferentialRow
		if err := rows.Scan(&r.Type, &r.ConditionName, &r.Position); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *storePG) UpsertHistory(ctx context.Context, reportID uuid.UUID, h History) error {
	_, err := db.Pick(ctx, s.pool).Exec(ctx, `
		INSERT INTO report_history (report_id, pregnancy_complications, developmental_milestones, medical_history, family_history)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (report_id) DO UPDATE SET
			pregnancy_complications = EXCLUDED.pregnancy_complications,
			developmental_milestones = EXCLUDED.developmental_milestones,
			medical_history = EXCLUDED.medical_history,
			family_history = EXCLUDED.family_history`,
		reportID, h.PregnancyComplications, h.DevelopmentalMilestones, h.MedicalHistory, h.FamilyHistory)
	if err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}
	return nil
}

func (s *storePG) UpsertObservation(ctx context.Context, reportID uuid.UUID, o ClinicalObservation) error {
	_, err := db.Pick(ctx, s.pool).Exec(ctx, `
		INSERT INTO clinical_observations (report_id, verbal_communication, nonverbal_communication,
			social_interaction, repetitive_behaviors, sensory_sensitivities)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (report_id) DO UPDATE SET
			verbal_communication = EXCLUDED.verbal_communication,
			nonverbal_communication = EXCLUDED.nonverbal_communication,
			social_interaction = EXCLUDED.social_interaction,
			repetitive_behaviors = EXCLUDED.repetitive_behaviors,
			sensory_sensitivities = EXCLUDED.sensory_sensitivities`,
		reportID, o.VerbalCommunication, o.NonverbalCommunication, o.SocialInteraction,
		o.RepetitiveBehaviors, o.SensorySensitivities)
	if err != nil {
		return fmt.Errorf("upsert clinical observation: %w", err)
	}
	return nil
}

func (s *storePG) clear(ctx context.Context, table string, reportID uuid.UUID) error {
	if _, err := db.Pick(ctx, s.pool).Exec(ctx, `DELETE FROM `+table+` WHERE report_id = $1`, reportID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	return nil
}

// persistedID returns the row id to reuse for in, or nil to let the
// database assign one.
func persistedID(in Instrument) *uuid.UUID {
	if IsTempID(in.ID) {
		return nil
	}
	id, err := uuid.Parse(in.ID)
	if err != nil {
		return nil
	}
	return &id
}

func (s *storePG) ReplaceInstruments(ctx context.Context, reportID uuid.UUID, list []Instrument) error {
	if err := s.clear(ctx, "applied_instruments", reportID); err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, in := range list {
		batch.Queue(`
			INSERT INTO applied_instruments (id, report_id, instrument_name, application_date, scores_results, position)
			VALUES (COALESCE($1, gen_random_uuid()), $2, $3, $4, $5, $6)`,
			persistedID(in), reportID, in.InstrumentName, in.ApplicationDate, in.ScoresResults, i)
	}
	if err := db.Pick(ctx, s.pool).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert instruments: %w", err)
	}
	return nil
}

func (s *storePG) ReplaceCriteria(ctx context.Context, reportID uuid.UUID, met []Criterion) error {
	if err := s.clear(ctx, "diagnostic_criteria", reportID); err != nil {
		return err
	}
	if len(met) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range met {
		batch.Queue(`INSERT INTO diagnostic_criteria (report_id, criterion_code, is_met) VALUES ($1, $2, TRUE)`,
			reportID, c)
	}
	if err := db.Pick(ctx, s.pool).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert criteria: %w", err)
	}
	return nil
}

func (s *storePG) ReplaceDifferentials(ctx context.Context, reportID uuid.UUID, rows []DifferentialRow) error {
	if err := s.clear(ctx, "differential_diagnoses", reportID); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`INSERT INTO differential_diagnoses (report_id, type, condition_name, position) VALUES ($1, $2, $3, $4)`,
			reportID, r.Type, r.ConditionName, r.Position)
	}
	if err := db.Pick(ctx, s.pool).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert differentials: %w", err)
	}
	return nil
}
