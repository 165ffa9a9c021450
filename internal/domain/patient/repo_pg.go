package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blua/laudos/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, full_name, COALESCE(to_char(date_of_birth, 'YYYY-MM-DD'), ''), gender,
	phone, email, address, created_by, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FullName, &p.DateOfBirth, &p.Gender,
		&p.Phone, &p.Email, &p.Address, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := db.Pick(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patients (id, full_name, date_of_birth, gender, phone, email, address, created_by)
		VALUES ($1, $2, NULLIF($3, '')::date, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		p.ID, p.FullName, p.DateOfBirth, p.Gender, p.Phone, p.Email, p.Address, p.CreatedBy,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, owner, id uuid.UUID) (*Patient, error) {
	return scanPatient(db.Pick(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1 AND created_by = $2`, id, owner))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := db.Pick(ctx, r.pool).Exec(ctx, `
		UPDATE patients SET full_name = $3, date_of_birth = NULLIF($4, '')::date, gender = $5,
			phone = $6, email = $7, address = $8, updated_at = NOW()
		WHERE id = $1 AND created_by = $2`,
		p.ID, p.CreatedBy, p.FullName, p.DateOfBirth, p.Gender, p.Phone, p.Email, p.Address)
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := db.Pick(ctx, r.pool).Exec(ctx,
		`DELETE FROM patients WHERE id = $1 AND created_by = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	q := db.Pick(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE created_by = $1`, owner).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}
	rows, err := q.Query(ctx, `SELECT `+patientCols+` FROM patients
		WHERE created_by = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, owner, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	items := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListReports(ctx context.Context, owner, patientID uuid.UUID) ([]*ReportSummary, error) {
	rows, err := db.Pick(ctx, r.pool).Query(ctx, `
		SELECT r.id, r.title, r.status, r.created_at
		FROM reports r JOIN patients p ON p.id = r.patient_id
		WHERE r.patient_id = $1 AND p.created_by = $2
		ORDER BY r.created_at DESC`, patientID, owner)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	items := []*ReportSummary{}
	for rows.Next() {
		var s ReportSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}
	return items, rows.Err()
}
