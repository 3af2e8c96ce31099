package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/adanyl0v/go-tracker/internal/database"
	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/repository"
)

type userRepository struct {
	db database.DBTX
}

func NewUserRepository(db database.DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const insertUserQuery = `
INSERT INTO users (id,
                   username,
                   email,
                   password,
                   is_active,
                   is_admin,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err := r.db.Exec(
		ctx,
		insertUserQuery,
		user.ID,
		user.Username,
		user.Email,
		user.Password,
		user.IsActive,
		user.IsAdmin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		err = normalizeError(err)
		if errors.Is(err, repository.ErrAlreadyExists) {
			return err
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	const selectUserByIDQuery = `
SELECT id,
       username,
       email,
       password,
       is_active,
       is_admin,
       created_at,
       updated_at
FROM users
WHERE id = $1
`
	return scanUser(r.db.QueryRow(ctx, selectUserByIDQuery, id))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	const selectUserByUsernameQuery = `
SELECT id,
       username,
       email,
       password,
       is_active,
       is_admin,
       created_at,
       updated_at
FROM users
WHERE username = $1
`
	return scanUser(r.db.QueryRow(ctx, selectUserByUsernameQuery, username))
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := new(models.User)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password,
		&user.IsActive,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		err = normalizeError(err)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}
