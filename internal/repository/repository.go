package repository

import (
	"context"

	"github.com/akarpov/userhub/internal/models"
)

type CreateUserParams struct {
	Name           string
	Email          string
	Role           string
	HashedPassword string
}

// Fields with nil pointers are left unchanged
type UpdateUserParams struct {
	Name           *string
	Email          *string
	HashedPassword *string
	AvatarKey      *string
}

// User repository interface.
// It is the only owner of persisted user records; uniqueness of email
// and refresh token values is enforced by the store itself.
type UserRepo interface {
	// Create user
	// If user with the same email exists must return apperrors.ErrEmailTaken
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by id, email or current refresh token value
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByRefreshToken(ctx context.Context, token string) (models.User, error)

	// Update user fields
	// If user not found must return apperrors.ErrUserNotFound
	// If the new email collides must return apperrors.ErrEmailTaken
	UpdateUser(ctx context.Context, id int64, params UpdateUserParams) (models.User, error)

	// Set (or clear, with nil) the refresh token slot for the user.
	// The token expiry is persisted alongside the value.
	// If user not found must return apperrors.ErrUserNotFound
	SetRefreshToken(ctx context.Context, id int64, token *models.IssuedToken) error

	// Atomically replace the refresh token slot keyed by its current value.
	// Must return apperrors.ErrUserNotFound when no row holds 'current' or
	// the stored expiry has passed: the token was never issued, is already
	// superseded or has outlived its lifetime. Under concurrent rotation of
	// the same value at most one caller succeeds.
	RotateRefreshToken(ctx context.Context, current string, next models.IssuedToken) (models.User, error)

	// Delete user record. Removing the row also drops the refresh slot,
	// so outstanding refresh tokens die with the account.
	// If user not found must return apperrors.ErrUserNotFound
	DeleteUser(ctx context.Context, id int64) error
}
