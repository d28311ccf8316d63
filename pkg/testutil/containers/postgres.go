//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema creates every table the assessment stores touch. Integration tests
// apply it once per container; production uses the same DDL via migrations.
const schema = `
CREATE TABLE IF NOT EXISTS invitations (
	id              UUID PRIMARY KEY,
	token           TEXT NOT NULL UNIQUE,
	candidate_id    UUID NOT NULL,
	job_role_id     TEXT NOT NULL,
	status          TEXT NOT NULL,
	expires_at      TIMESTAMPTZ NOT NULL,
	link_opened_at  TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assessments (
	id               UUID PRIMARY KEY,
	candidate_id     UUID NOT NULL UNIQUE,
	invitation_id    UUID NOT NULL,
	started_at       TIMESTAMPTZ NOT NULL,
	completed_at     TIMESTAMPTZ,
	duration_minutes INTEGER
);

CREATE TABLE IF NOT EXISTS item_responses (
	assessment_id    UUID NOT NULL,
	item_id          TEXT NOT NULL,
	item_type        TEXT NOT NULL,
	payload          JSONB NOT NULL,
	response_time_ms INTEGER,
	confidence       INTEGER,
	submitted_at     TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (assessment_id, item_id)
);

CREATE TABLE IF NOT EXISTS surveys (
	assessment_id UUID PRIMARY KEY,
	ratings       JSONB NOT NULL,
	feedback      TEXT NOT NULL DEFAULT '',
	submitted_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS score_sets (
	assessment_id    UUID PRIMARY KEY,
	composite_scores JSONB,
	subtest_scores   JSONB,
	red_flags        TEXT[],
	predictions      JSONB,
	interview_guide  TEXT[],
	development_plan TEXT[],
	notes            TEXT NOT NULL DEFAULT '',
	scored_at        TIMESTAMPTZ NOT NULL
);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with an open
// connection pool and the schema already applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	DSN       string
}

// NewPostgresContainer starts a new PostgreSQL container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("talentgate"),
		tcpostgres.WithUsername("talentgate"),
		tcpostgres.WithPassword("talentgate"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Container lifetime is managed by the singleton Manager; Ryuk reaps it.

	return &PostgresContainer{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}
}

// TruncateTables removes all rows from the given tables. Use between tests to
// ensure isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	stmt := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
