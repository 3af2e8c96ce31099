package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrSessionClosed = errors.New("session closed")

// DBTX is the subset of pgx shared by pools, connections and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Session lends a single transaction to one unit of work. It must be
// released on every exit path; Release after Commit is a no-op.
type Session struct {
	tx     pgx.Tx
	closed bool
}

func Begin(ctx context.Context, db Beginner) (*Session, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Session{tx: tx}, nil
}

func (s *Session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if s.closed {
		return pgconn.CommandTag{}, ErrSessionClosed
	}
	return s.tx.Exec(ctx, sql, args...)
}

func (s *Session) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.tx.Query(ctx, sql, args...)
}

func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if s.closed {
		return closedRow{}
	}
	return s.tx.QueryRow(ctx, sql, args...)
}

func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true

	err := s.tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Release rolls back the transaction unless it was already committed.
func (s *Session) Release(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// WithSession runs fn inside a session and commits when fn succeeds.
func WithSession(ctx context.Context, db Beginner, fn func(s *Session) error) (err error) {
	s, err := Begin(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		releaseErr := s.Release(context.WithoutCancel(ctx))
		if err == nil {
			err = releaseErr
		}
	}()

	err = fn(s)
	if err != nil {
		return err
	}
	return s.Commit(ctx)
}

type closedRow struct{}

func (closedRow) Scan(...any) error {
	return ErrSessionClosed
}
