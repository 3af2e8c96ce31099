package database

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestSession_CommitThenRelease(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks").
		WithArgs("archived").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	s, err := Begin(ctx, mock)
	require.NoError(t, err)

	tag, err := s.Exec(ctx, "UPDATE tasks SET status = $1", "archived")
	require.NoError(t, err)
	assert.EqualValues(t, 1, tag.RowsAffected())

	require.NoError(t, s.Commit(ctx))
	assert.True(t, s.closed)

	// Releasing a committed session must not roll back.
	require.NoError(t, s.Release(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSession_ReleaseRollsBack(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	s, err := Begin(ctx, mock)
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx))
	require.NoError(t, s.Release(ctx))

	_, err = s.Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.QueryRow(ctx, "SELECT 1").Scan(), ErrSessionClosed)
	assert.ErrorIs(t, s.Commit(ctx), ErrSessionClosed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBegin_Error(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := Begin(context.Background(), mock)
	assert.ErrorContains(t, err, "connection refused")
}

func TestWithSession(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := WithSession(context.Background(), mock, func(*Session) error {
			return nil
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := WithSession(context.Background(), mock, func(*Session) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = WithSession(context.Background(), mock, func(*Session) error {
				panic("handler bug")
			})
		})
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
