package user

import (
	"context"
	"fmt"
	"time"

	"github.com/akarpov/userhub/internal/apperrors"
	"github.com/akarpov/userhub/internal/models"
	"github.com/akarpov/userhub/internal/notify"
	"github.com/akarpov/userhub/internal/repository"
	"github.com/akarpov/userhub/internal/service/auth"
)

// Media issues presigned upload URLs for avatar images
type Media interface {
	PresignAvatarPut(ctx context.Context, userID int64) (key string, url string, err error)
}

// Profile fields to change. Nil pointers are left untouched.
// A present Password is re-hashed before it reaches the store.
type UpdateParams struct {
	Name     *string
	Email    *string
	Password *string
}

// UserService covers profile operations: get, update, delete and
// avatar upload delegation
type UserService struct {
	hasher   auth.PasswordHasher
	userRepo repository.UserRepo
	broker   notify.Broker
	media    Media
}

// NewService creates the user service.
// media may be nil: avatar uploads then fail with ErrUploadsDisabled.
func NewService(hasher auth.PasswordHasher, userRepo repository.UserRepo, broker notify.Broker, media Media) *UserService {
	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}
	if broker == nil {
		broker = notify.Discard
	}

	return &UserService{
		hasher:   hasher,
		userRepo: userRepo,
		broker:   broker,
		media:    media,
	}
}

func (s *UserService) Get(ctx context.Context, id int64) (models.User, error) {
	return s.userRepo.GetUserByID(ctx, id)
}

func (s *UserService) Update(ctx context.Context, id int64, params UpdateParams) (models.User, error) {
	repoParams := repository.UpdateUserParams{
		Name:  params.Name,
		Email: params.Email,
	}

	if params.Password != nil {
		hash, err := s.hasher.Hash(*params.Password)
		if err != nil {
			return models.User{}, fmt.Errorf("can't use this as password. Err: %w", err)
		}
		repoParams.HashedPassword = &hash
	}

	user, err := s.userRepo.UpdateUser(ctx, id, repoParams)
	if err != nil {
		return models.User{}, err
	}

	_ = s.broker.Publish(ctx, models.Event{
		Type:   models.EventUserUpdated,
		UserID: user.ID,
		Name:   user.Name,
		At:     time.Now(),
	})

	return user, nil
}

// Delete removes the user record. The refresh token slot dies with the
// row, while already issued access tokens stay valid until expiry:
// accepted staleness given the short access TTL.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.userRepo.DeleteUser(ctx, id); err != nil {
		return err
	}

	_ = s.broker.Publish(ctx, models.Event{
		Type:   models.EventUserDeleted,
		UserID: id,
		At:     time.Now(),
	})

	return nil
}

// AvatarUploadURL reserves a storage key for the user's avatar, saves
// it on the record and returns a presigned URL to upload the image to
func (s *UserService) AvatarUploadURL(ctx context.Context, id int64) (key string, url string, err error) {
	if s.media == nil {
		return "", "", apperrors.ErrUploadsDisabled
	}

	// Make sure the user exists before touching the object store
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return "", "", err
	}

	key, url, err = s.media.PresignAvatarPut(ctx, user.ID)
	if err != nil {
		return "", "", err
	}

	if _, err := s.userRepo.UpdateUser(ctx, id, repository.UpdateUserParams{AvatarKey: &key}); err != nil {
		return "", "", err
	}

	return key, url, nil
}
