package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, "0001_init", migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS tasks")
	assert.Equal(t, "0002_shipments", migrations[1].Version)
	assert.Contains(t, migrations[1].SQL, "CREATE TABLE IF NOT EXISTS shipments")
}

func TestMigrate(t *testing.T) {
	migrations := []Migration{
		{Version: "0001_widgets", SQL: "CREATE TABLE widgets (id INT)"},
		{Version: "0002_gadgets", SQL: "CREATE TABLE gadgets (id INT)"},
	}

	mock := newMockPool(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	// 0001 is already applied.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WithArgs("0001_widgets").
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow("0001_widgets"))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WithArgs("0002_gadgets").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE gadgets (id INT)")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("0002_gadgets").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	applied, err := Migrate(context.Background(), zerolog.Nop(), mock, migrations)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	migrations := []Migration{
		{Version: "0001_broken", SQL: "CREATE TABLE broken ("},
	}

	mock := newMockPool(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WithArgs("0001_broken").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE broken (")).
		WillReturnError(errors.New("syntax error at end of input"))
	mock.ExpectRollback()

	applied, err := Migrate(context.Background(), zerolog.Nop(), mock, migrations)
	assert.ErrorContains(t, err, "syntax error")
	assert.Zero(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}
