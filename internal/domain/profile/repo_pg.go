package profile

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

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	err := db.Pick(ctx, r.pool).QueryRow(ctx,
		`SELECT id, specialty, professional_registry, phone, updated_at FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Specialty, &p.ProfessionalRegistry, &p.Phone, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (r *repoPG) Upsert(ctx context.Context, p *Profile) error {
	err := db.Pick(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO profiles (id, specialty, professional_registry, phone, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			specialty = EXCLUDED.specialty,
			professional_registry = EXCLUDED.professional_registry,
			phone = EXCLUDED.phone,
			updated_at = NOW()
		RETURNING updated_at`,
		p.ID, p.Specialty, p.ProfessionalRegistry, p.Phone,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
