package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blua/laudos/internal/platform/postgrest"
)

type repoREST struct{ c *postgrest.Client }

func NewRepoREST(c *postgrest.Client) Repository {
	return &repoREST{c: c}
}

func (r *repoREST) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var out []*Profile
	if err := r.c.Select(ctx, "profiles", postgrest.Where().Eq("id", id.String()).Limit(1), &out); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *repoREST) Upsert(ctx context.Context, p *Profile) error {
	p.UpdatedAt = time.Now().UTC()
	var out []Profile
	if err := r.c.Upsert(ctx, "profiles", "id", []*Profile{p}, &out); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	if len(out) == 1 {
		p.UpdatedAt = out[0].UpdatedAt
	}
	return nil
}
