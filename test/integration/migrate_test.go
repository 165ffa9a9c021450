//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/blua/laudos/internal/platform/db"
	"github.com/blua/laudos/migrations"
)

func TestMigrator_UpIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := db.NewMigrator(pool, migrations.FS)

	n, err := m.Up(ctx, "public")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected nothing left to apply, applied %d", n)
	}

	statuses, err := m.Status(ctx, "public")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) == 0 {
		t.Fatal("expected at least one migration")
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("migration %d (%s) not applied", s.Version, s.Name)
		}
	}
}
