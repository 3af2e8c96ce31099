package app

import (
	"context"

	"github.com/adanyl0v/go-tracker/internal/database"
)

func MustMigrate() {
	migrations, err := database.Migrations()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to load migrations")
		panic(err)
	}

	applied, err := database.Migrate(context.Background(), globalLogger, globalPostgresPool, migrations)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to migrate database")
		panic(err)
	}
	globalLogger.Info().
		Int("applied", applied).
		Int("total", len(migrations)).
		Msg("migrated database")
}
