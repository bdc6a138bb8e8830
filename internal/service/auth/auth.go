package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akarpov/userhub/internal/apperrors"
	"github.com/akarpov/userhub/internal/models"
	"github.com/akarpov/userhub/internal/notify"
	"github.com/akarpov/userhub/internal/repository"
)

type Config struct {
	// Hasher to use during user registration and login
	// BcryptHasher with default cost is used if not set
	Hasher PasswordHasher
}

// TokenManager issues access tokens and mints refresh values
type TokenManager interface {
	IssueAccess(userID int64, role string) (models.IssuedToken, error)
	NewRefresh() models.IssuedToken
	ParseAccess(access string) (models.Identity, error)
}

// AuthService orchestrates sign-up, sign-in and token refresh.
// It is stateless: everything lives in the user repository or in the
// tokens themselves.
type AuthService struct {
	token  TokenManager
	hasher PasswordHasher

	userRepo repository.UserRepo
	broker   notify.Broker

	// Hash compared against when the email is unknown, so login takes
	// the same time whether the account exists or not
	dummyHash string
}

func NewService(cfg Config, token TokenManager, userRepo repository.UserRepo, broker notify.Broker) (*AuthService, error) {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	if token == nil || userRepo == nil {
		return nil, errors.New("token manager and user repo must not be nil")
	}
	if broker == nil {
		broker = notify.Discard
	}

	dummyHash, err := hasher.Hash("userhub-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("hasher self check failed. Err: %w", err)
	}

	return &AuthService{
		token:     token,
		hasher:    hasher,
		userRepo:  userRepo,
		broker:    broker,
		dummyHash: dummyHash,
	}, nil
}

// SignUp registers a user and logs it in right away.
// Returns apperrors.ErrEmailTaken if the email is already registered.
func (s *AuthService) SignUp(ctx context.Context, name, email, role, password string) (models.User, models.TokenPair, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, models.TokenPair{}, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	if role == "" {
		role = models.RoleUser
	}

	user, err := s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Name:           name,
		Email:          email,
		Role:           role,
		HashedPassword: hash,
	})
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	pair, err := s.issuePair(ctx, &user)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	// Broadcast is best effort: a dropped notification must not fail signup
	_ = s.broker.Publish(ctx, models.Event{
		Type:   models.EventUserRegistered,
		UserID: user.ID,
		Name:   user.Name,
		At:     time.Now(),
	})

	return user, pair, nil
}

// SignIn verifies credentials and issues a fresh token pair.
// Unknown email and wrong password both fail with the single
// apperrors.ErrInvalidCredentials: no signal which one it was.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (models.User, models.TokenPair, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		// Burn comparable time on the dummy hash so timing does not
		// reveal whether the account exists
		_ = s.hasher.Compare(s.dummyHash, password)
		return models.User{}, models.TokenPair{}, apperrors.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, models.TokenPair{}, apperrors.ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, &user)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	return user, pair, nil
}

// Refresh exchanges a refresh token for a new pair.
// The slot is rotated atomically: a value that was never issued, is
// already superseded or past its stored expiry fails with
// apperrors.ErrUserNotFound.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.User, models.TokenPair, error) {
	next := s.token.NewRefresh()

	user, err := s.userRepo.RotateRefreshToken(ctx, refresh, next)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	access, err := s.token.IssueAccess(user.ID, user.Role)
	if err != nil {
		return models.User{}, models.TokenPair{}, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	return user, models.TokenPair{Access: access, Refresh: next}, nil
}

// issuePair issues an access token and installs a new refresh value
// into the user's slot, invalidating whatever was there before
func (s *AuthService) issuePair(ctx context.Context, user *models.User) (models.TokenPair, error) {
	access, err := s.token.IssueAccess(user.ID, user.Role)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated. Err: %w", err)
	}

	refresh := s.token.NewRefresh()
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, &refresh); err != nil {
		return models.TokenPair{}, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}
	user.RefreshToken = &refresh.Value
	user.RefreshTokenExpiresAt = &refresh.ExpiresAt

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}
