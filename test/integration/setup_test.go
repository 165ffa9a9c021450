//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blua/laudos/internal/platform/auth"
	"github.com/blua/laudos/internal/platform/db"
	"github.com/blua/laudos/migrations"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr, cleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		os.Exit(1)
	}

	pool, err = db.NewPool(ctx, connStr, 5, 1)
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx, "public"); err != nil {
		pool.Close()
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

// asUser returns a context carrying a fresh account's session, so tests
// never see each other's rows.
func asUser(t *testing.T) (context.Context, uuid.UUID) {
	t.Helper()
	id := uuid.New()
	return auth.WithSession(context.Background(), &auth.Session{
		UserID:   id,
		Email:    "prof-" + id.String()[:8] + "@clinica.test",
		FullName: "Dra. Teste",
		Role:     "psicologo",
	}), id
}
