// Package postgres implements the repositories on top of pgx.
package postgres

import (
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/adanyl0v/go-tracker/internal/database"
	"github.com/adanyl0v/go-tracker/internal/repository"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// NewRepositories binds every repository to the same session.
func NewRepositories(db database.DBTX) repository.Repositories {
	return repository.Repositories{
		Users:     NewUserRepository(db),
		Tasks:     NewTaskRepository(db),
		Shipments: NewShipmentRepository(db),
	}
}

// normalizeError maps pgx errors onto repository sentinels. A malformed
// uuid can never match a row, so it is reported as not found.
func normalizeError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return repository.ErrAlreadyExists
		case pgerrcode.InvalidTextRepresentation:
			return repository.ErrNotFound
		}
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func applyPage(q sq.SelectBuilder, page repository.Page) sq.SelectBuilder {
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	if page.Offset > 0 {
		q = q.Offset(page.Offset)
	}
	return q
}
