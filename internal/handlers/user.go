package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/akarpov/userhub/internal/apperrors"
	"github.com/akarpov/userhub/internal/handlers/identityctx"
	"github.com/akarpov/userhub/internal/handlers/render"
	"github.com/akarpov/userhub/internal/logger"
	"github.com/akarpov/userhub/internal/models"
	userservice "github.com/akarpov/userhub/internal/service/user"
)

type userService interface {
	Get(ctx context.Context, id int64) (models.User, error)
	Update(ctx context.Context, id int64, params userservice.UpdateParams) (models.User, error)
	Delete(ctx context.Context, id int64) error
	AvatarUploadURL(ctx context.Context, id int64) (key string, url string, err error)
}

// User payload as returned to clients. The password hash never leaves
// the service, there is simply no field for it here.
type userResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	AvatarKey *string   `json:"avatarKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		AvatarKey: u.AvatarKey,
		CreatedAt: u.CreatedAt,
	}
}

func handleGetUser(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		user, err := users.Get(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				l.Error("get user failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, toUserResponse(user))
	})
}

func handleUserMe(users userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := identityctx.FromContext(r.Context())

		user, err := users.Get(r.Context(), identity.UserID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				// Token outlived the account, accepted staleness window
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				l.Error("get current user failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, toUserResponse(user))
	})
}

func handleUpdateUser(users userService, l logger.Logger) http.Handler {
	type request struct {
		Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
		Email    *string `json:"email" validate:"omitempty,email"`
		Password *string `json:"password" validate:"omitempty,min=8"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if !allowSelfOrAdmin(w, r, id) {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, err := users.Update(r.Context(), id, userservice.UpdateParams{
			Name:     data.Name,
			Email:    data.Email,
			Password: data.Password,
		})
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			case errors.Is(err, apperrors.ErrEmailTaken):
				render.ServiceError(w, "Email already taken", http.StatusConflict)
			default:
				l.Error("update user failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, toUserResponse(user))
	})
}

func handleDeleteUser(users userService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if !allowSelfOrAdmin(w, r, id) {
			return
		}

		if err := users.Delete(r.Context(), id); err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				l.Error("delete user failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{Message: "User deleted"})
	})
}

func handleAvatarUpload(users userService, l logger.Logger) http.Handler {
	type response struct {
		UploadURL string `json:"uploadUrl"`
		Key       string `json:"key"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if !allowSelfOrAdmin(w, r, id) {
			return
		}

		key, url, err := users.AvatarUploadURL(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			case errors.Is(err, apperrors.ErrUploadsDisabled):
				render.ServiceError(w, "Uploads are not available", http.StatusServiceUnavailable)
			default:
				l.Error("avatar upload failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{UploadURL: url, Key: key})
	})
}

// pathID parses the {id} path segment, writing a 400 response on junk
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// allowSelfOrAdmin rejects callers acting on someone else's record
// unless they hold the admin role
func allowSelfOrAdmin(w http.ResponseWriter, r *http.Request, id int64) bool {
	identity, ok := identityctx.FromContext(r.Context())
	if !ok {
		// Gate misconfiguration, never reachable behind middleware.Auth
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}

	if identity.UserID != id && !identity.IsAdmin() {
		render.ServiceError(w, "Access denied", http.StatusForbidden)
		return false
	}

	return true
}
