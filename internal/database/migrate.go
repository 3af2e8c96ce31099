package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Migration struct {
	Version string
	SQL     string
}

// Migrations returns the embedded migrations ordered by version.
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		data, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", e.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(e.Name(), ".sql"),
			SQL:     string(data),
		})
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

type migrationDB interface {
	DBTX
	Beginner
}

// Migrate applies every pending migration, each in its own session.
// It returns the number of applied migrations.
func Migrate(ctx context.Context, logger zerolog.Logger, db migrationDB, migrations []Migration) (int, error) {
	const createMigrationsTableQuery = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)
`
	_, err := db.Exec(ctx, createMigrationsTableQuery)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to create schema_migrations table")
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		var skipped bool
		err = WithSession(ctx, db, func(s *Session) error {
			const selectMigrationQuery = `
SELECT version FROM schema_migrations WHERE version = $1
`
			var version string
			err := s.QueryRow(ctx, selectMigrationQuery, m.Version).Scan(&version)
			if err == nil {
				skipped = true
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("failed to select migration: %w", err)
			}

			_, err = s.Exec(ctx, m.SQL)
			if err != nil {
				return fmt.Errorf("failed to apply migration: %w", err)
			}

			const insertMigrationQuery = `
INSERT INTO schema_migrations (version) VALUES ($1)
`
			_, err = s.Exec(ctx, insertMigrationQuery, m.Version)
			if err != nil {
				return fmt.Errorf("failed to record migration: %w", err)
			}
			return nil
		})
		if err != nil {
			logger.Error().
				Err(err).
				Str("version", m.Version).
				Msg("migration failed")
			return applied, err
		}

		if skipped {
			logger.Debug().
				Str("version", m.Version).
				Msg("migration already applied")
			continue
		}
		applied++
		logger.Info().
			Str("version", m.Version).
			Msg("applied migration")
	}
	return applied, nil
}
