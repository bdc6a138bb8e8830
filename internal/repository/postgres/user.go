package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/akarpov/userhub/internal/apperrors"
	"github.com/akarpov/userhub/internal/models"
	"github.com/akarpov/userhub/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (name, email, role, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, name, email, role, password_hash, refresh_token, refresh_token_expires_at, avatar_key
`

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, params.Name, params.Email, params.Role, params.HashedPassword)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrEmailTaken
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, name, email, role, password_hash, refresh_token, refresh_token_expires_at, avatar_key
FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT id, created_at, name, email, role, password_hash, refresh_token, refresh_token_expires_at, avatar_key
FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

const getUserByRefreshToken = `-- name: GetUserByRefreshToken
SELECT id, created_at, name, email, role, password_hash, refresh_token, refresh_token_expires_at, avatar_key
FROM users
WHERE refresh_token = $1
`

func (r *UserRepo) GetUserByRefreshToken(ctx context.Context, token string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByRefreshToken, token)
	return collectUser(rows)
}

const updateUser = `-- name: UpdateUser
UPDATE users
SET name          = COALESCE($2, name),
    email         = COALESCE($3, email),
    password_hash = COALESCE($4, password_hash),
    avatar_key    = COALESCE($5, avatar_key)
WHERE id = $1
RETURNING id, created_at, name, email, role, password_hash, refresh_token, refresh_token_expires_at, avatar_key
`

func (r *UserRepo) UpdateUser(ctx context.Context, id int64, params repository.UpdateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateUser, id, params.Name, params.Email, params.HashedPassword, params.AvatarKey)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrEmailTaken
		}
		return user, fmt.Errorf("db error: %w", err)
	}
}

const setRefreshToken = `-- name: SetRefreshToken
UPDATE users
SET refresh_token            = $2,
    refresh_token_expires_at = $3
WHERE id = $1
`

func (r *UserRepo) SetRefreshToken(ctx context.Context, id int64, token *models.IssuedToken) error {
	var value *string
	var expiresAt *time.Time
	if token != nil {
		value = &token.Value
		expiresAt = &token.ExpiresAt
	}

	tag, err := r.DB.Exec(ctx, setRefreshToken, id, value, expiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

const rotateRefreshToken = `-- name: RotateRefreshToken
UPDATE users
SET refresh_token            = $2,
    refresh_token_expires_at = $3
WHERE refresh_token = $1 AND refresh_token_expires_at > now()
RETURNING id, created_at, name, email, role, password_hash, refresh_token, refresh_token_expires_at, avatar_key
`

// Single UPDATE keyed by the current value: when two calls race with the
// same token, only one matches the row and the other gets ErrUserNotFound.
// An expired slot matches nothing either, the token's lifetime is over.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, current string, next models.IssuedToken) (models.User, error) {
	rows, _ := r.DB.Query(ctx, rotateRefreshToken, current, next.Value, next.ExpiresAt)
	return collectUser(rows)
}

const deleteUser = `-- name: DeleteUser
DELETE FROM users
WHERE id = $1
`

func (r *UserRepo) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.DB.Exec(ctx, deleteUser, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Name, &u.Email, &u.Role, &u.HashedPassword, &u.RefreshToken, &u.RefreshTokenExpiresAt, &u.AvatarKey)
	return u, err
}
