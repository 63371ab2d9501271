package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/migrations"
	pgutil "github.com/thenielthevis/capstone-project-sub006/pkg/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	Container *postgres.PostgresContainer
	DSN       string
	Pool      *pgxpool.Pool
}

// NewPostgresContainer starts a PostgreSQL container with the schema
// migrations applied. The caller should defer container.Cleanup(t).
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("healthrisk_test"),
		postgres.WithUsername("healthrisk"),
		postgres.WithPassword("healthrisk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	if err := pgutil.RunMigrations(dsn, migrations.FS); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	pool, err := pgutil.NewPool(ctx, pgutil.Config{URL: dsn, MaxConns: 4})
	if err != nil {
		t.Fatalf("failed to create pgxpool: %v", err)
	}

	return &PostgresContainer{
		Container: pgContainer,
		DSN:       dsn,
		Pool:      pool,
	}
}

// Cleanup terminates the container.
func (pc *PostgresContainer) Cleanup(t *testing.T) {
	t.Helper()

	if pc.Pool != nil {
		pc.Pool.Close()
	}

	if pc.Container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := pc.Container.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate postgres container: %v", err)
		}
	}
}

// SeedUser inserts a user row with the given profile and no predictions.
func (pc *PostgresContainer) SeedUser(ctx context.Context, t *testing.T, id uuid.UUID, profile model.UserHealthProfile) {
	t.Helper()

	raw, err := json.Marshal(profile)
	if err != nil {
		t.Fatalf("failed to encode profile: %v", err)
	}
	if _, err := pc.Pool.Exec(ctx, `INSERT INTO users (id, health_profile) VALUES ($1, $2)`, id, raw); err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
}
