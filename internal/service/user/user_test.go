package user

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/akarpov/userhub/internal/apperrors"
	"github.com/akarpov/userhub/internal/models"
	"github.com/akarpov/userhub/internal/notify"
	"github.com/akarpov/userhub/internal/repository"
	"github.com/akarpov/userhub/internal/repository/postgres"
	"github.com/akarpov/userhub/internal/service/auth"
	"github.com/akarpov/userhub/internal/testutil"
)

// fakeMedia returns deterministic keys without talking to object storage
type fakeMedia struct{}

func (fakeMedia) PresignAvatarPut(ctx context.Context, userID int64) (string, string, error) {
	key := fmt.Sprintf("avatars/%d/fake", userID)
	return key, "https://storage.example.com/" + key, nil
}

func Test_UserService(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	hasher := auth.BcryptHasher{}

	createUser := func(t *testing.T, repo *postgres.UserRepo) models.User {
		t.Helper()

		hash, err := hasher.Hash("initial-password")
		require.NoError(t, err)

		user, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
			Name:           "Anna",
			Email:          "anna@example.com",
			Role:           models.RoleUser,
			HashedPassword: hash,
		})
		require.NoError(t, err)
		return user
	}

	withService := func(t *testing.T, media Media, fn func(s *UserService, repo *postgres.UserRepo, hub *notify.Hub)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := &postgres.UserRepo{DB: tx}
			hub := notify.NewHub()
			fn(NewService(hasher, repo, hub, media), repo, hub)
		})
	}

	expectEvent := func(t *testing.T, events <-chan models.Event, eventType string, userID int64) {
		t.Helper()

		select {
		case event := <-events:
			require.Equal(t, eventType, event.Type)
			require.Equal(t, userID, event.UserID)
		case <-time.After(time.Second):
			t.Fatalf("expected %s event to be published", eventType)
		}
	}

	t.Run("Get", func(t *testing.T) {
		t.Run("get ok", func(t *testing.T) {
			withService(t, nil, func(s *UserService, repo *postgres.UserRepo, hub *notify.Hub) {
				created := createUser(t, repo)

				user, err := s.Get(t.Context(), created.ID)

				require.NoError(t, err)
				require.Equal(t, created.Email, user.Email)
			})
		})

		t.Run("not found", func(t *testing.T) {
			withService(t, nil, func(s *UserService, repo *postgres.UserRepo, hub *notify.Hub) {
				_, err := s.Get(t.Context(), 404)

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("rehashes a new password", func(t *testing.T) {
			withService(t, nil, func(s *UserService, repo *postgres.UserRepo, hub *notify.Hub) {
				created := createUser(t, repo)

				password := "brand-new-password"
				updated, err := s.Update(t.Context(), created.ID, UpdateParams{Password: &password})

				require.NoError(t, err)
				require.NotEqual(t, password, updated.HashedPassword, "plaintext must never be stored")
				require.NotEqual(t, created.HashedPassword, updated.HashedPassword, "hash should change")
				require.NoError(t, hasher.Compare(updated.HashedPassword, password), "new password should verify")
			})
		})

		t.Run("passes other fields through", func(t *testing.T) {
			withService(t, nil, func(s *UserService, repo *postgres.UserRepo, hub *notify.Hub) {
				created := createUser(t, repo)

				name := "Anna Updated"
				email := "anna-updated@example.com"
				updated, err := s.Update(t.Context(), created.ID, UpdateParams{Name: &name, Email: &email})

				require.NoError(t, err)
				require.Equal(t, name, updated.Name)
				require.Equal(t, email, updated.Email)
				require.Equal(t, created.HashedPassword, updated.HashedPassword, "password untouched when not provided")
			})
		})

		t.Run("publishes updated event", func(t *testing.T) {
			withService(t, nil, func(s *UserService, repo *postgres.UserRepo, hub *notify.Hub) {
				created := createUser(t, repo)

				events, cancel := hub.Subscribe(t.Context())
				defer cancel()

				name := "Anna Updated"
				_, err := s.Update(t.Context(), created.ID, UpdateParams{Name: &name})
				require.NoError(t, err)

				expectEvent(t, events, models.EventUserUpdated, created.ID)
			})
		})

		t.Run("not found", func(t *testing.T) {
			withService(t, nil, func(s *UserService, repo *postgres.UserRepo, hub *notify.Hub) {
				name := "whatever"
				_, err := s.Update(t.Context(), 404, UpdateParams{Name: &name})

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("delete ok and publishes event", func(t *testing.T) {
			withService(t, nil, func(s *UserService, repo *postgres.UserRepo, hub *notify.Hub) {
				created := createUser(t, repo)

				events, cancel := hub.Subscribe(t.Context())
				defer cancel()

				require.NoError(t, s.Delete(t.Context(), created.ID))

				_, err := s.Get(t.Context(), created.ID)
				require.ErrorIs(t, err, apperrors.ErrUserNotFound)

				expectEvent(t, events, models.EventUserDeleted, created.ID)
			})
		})

		t.Run("not found", func(t *testing.T) {
			withService(t, nil, func(s *UserService, repo *postgres.UserRepo, hub *notify.Hub) {
				err := s.Delete(t.Context(), 404)

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})

	t.Run("AvatarUploadURL", func(t *testing.T) {
		t.Run("presigns and saves key", func(t *testing.T) {
			withService(t, fakeMedia{}, func(s *UserService, repo *postgres.UserRepo, hub *notify.Hub) {
				created := createUser(t, repo)

				key, url, err := s.AvatarUploadURL(t.Context(), created.ID)

				require.NoError(t, err)
				require.NotEmpty(t, key)
				require.Contains(t, url, key, "upload url should point at the reserved key")

				user, err := repo.GetUserByID(t.Context(), created.ID)
				require.NoError(t, err)
				require.NotNil(t, user.AvatarKey)
				require.Equal(t, key, *user.AvatarKey)
			})
		})

		t.Run("disabled without media store", func(t *testing.T) {
			withService(t, nil, func(s *UserService, repo *postgres.UserRepo, hub *notify.Hub) {
				created := createUser(t, repo)

				_, _, err := s.AvatarUploadURL(t.Context(), created.ID)

				require.ErrorIs(t, err, apperrors.ErrUploadsDisabled)
			})
		})

		t.Run("not found", func(t *testing.T) {
			withService(t, fakeMedia{}, func(s *UserService, repo *postgres.UserRepo, hub *notify.Hub) {
				_, _, err := s.AvatarUploadURL(t.Context(), 404)

				require.ErrorIs(t, err, apperrors.ErrUserNotFound)
			})
		})
	})
}
