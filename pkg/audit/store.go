// Package audit implements the best-effort, append-only audit log (C9):
// a record of each pipeline invocation's outcome, persisted for operability
// and never read back by the pipeline itself (SPEC_FULL §4.9). Grounded on
// the teacher's pgx-backed database client (pkg/database/client.go),
// adapted to talk to pgx directly instead of through the ent ORM layer
// that client wrapped — see DESIGN.md for why ent itself was dropped.
package audit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/codeready-toolchain/orchestrator/pkg/plan"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a pooled pgx connection that appends one row per pipeline
// invocation.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to dsn, runs embedded migrations, and returns a ready
// Store. Mirrors the teacher's NewClient: migrate, connect, wrap.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// runMigrations applies embedded SQL migrations through database/sql (the
// pgx stdlib adapter), since golang-migrate's postgres driver speaks
// database/sql rather than pgx's native pool interface.
func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("up: %w", err)
	}
	return nil
}

// Record inserts one AuditRecord, logging (not raising) on failure — the
// fire-and-forget discipline of I4 extended to the audit write (SPEC_FULL
// §4.9).
func (s *Store) Record(ctx context.Context, requestID, content, intent string, status plan.ResponseStatus, outcomeCount, successCount int) {
	const q = `INSERT INTO audit_records (request_id, content, plan_intent, status, outcome_count, success_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.pool.Exec(ctx, q, requestID, content, intent, string(status), outcomeCount, successCount, time.Now().UTC())
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("request_id", requestID), slog.String("error", err.Error()))
	}
}

// Health reports whether the audit store's connection pool is reachable,
// used by the readiness probe when the audit log is enabled.
func (s *Store) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
