package profile

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Get returns nil, nil when no profile row exists yet.
	Get(ctx context.Context, id uuid.UUID) (*Profile, error)
	// Upsert inserts or replaces the row keyed by p.ID.
	Upsert(ctx context.Context, p *Profile) error
}
