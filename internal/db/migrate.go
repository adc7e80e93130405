// Package db applies the embedded SQL migrations in file-name order, recording each
// applied file in schema_migrations.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"portfolio-api/internal/observability"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrator runs a set of migration scripts. The zero value is unusable; use NewMigrator.
type Migrator struct {
	files  fs.FS
	logger *observability.Logger
}

func NewMigrator(logger *observability.Logger) *Migrator {
	sub, _ := fs.Sub(migrationFiles, "migrations")
	return &Migrator{files: sub, logger: logger}
}

// WithFiles swaps the script source, e.g. a fstest.MapFS in tests.
func (m *Migrator) WithFiles(files fs.FS) *Migrator {
	m.files = files
	return m
}

// Run applies pending scripts and returns the versions it applied.
func (m *Migrator) Run(ctx context.Context, database *sql.DB) ([]string, error) {
	if _, err := database.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return nil, fmt.Errorf("create schema_migrations table: %w", err)
	}

	versions, err := m.versions()
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0)
	for _, version := range versions {
		var exists bool
		if err := database.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists); err != nil {
			return applied, fmt.Errorf("check migration %s: %w", version, err)
		}
		if exists {
			continue
		}

		if err := m.apply(ctx, database, version); err != nil {
			return applied, err
		}
		applied = append(applied, version)
		m.logger.Info("migration_applied", map[string]any{"version": version})
	}

	return applied, nil
}

func (m *Migrator) versions() ([]string, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migration files: %w", err)
	}

	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			versions = append(versions, entry.Name())
		}
	}
	sort.Strings(versions)
	return versions, nil
}

func (m *Migrator) apply(ctx context.Context, database *sql.DB, version string) error {
	script, err := fs.ReadFile(m.files, version)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("execute migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}
