package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/akarpov/userhub/internal/apperrors"
	"github.com/akarpov/userhub/internal/handlers/render"
	"github.com/akarpov/userhub/internal/logger"
	"github.com/akarpov/userhub/internal/models"
)

type sessionService interface {
	// Register user, log it in and return the initial token pair
	// Has to return apperrors.ErrEmailTaken if the email is registered already
	SignUp(ctx context.Context, name, email, role, password string) (models.User, models.TokenPair, error)

	// Login with email and password
	// Has to return apperrors.ErrInvalidCredentials on any credential failure
	SignIn(ctx context.Context, email, password string) (models.User, models.TokenPair, error)

	// Exchange refresh token for a fresh pair, rotating the slot
	// Has to return apperrors.ErrUserNotFound if no user holds the token
	Refresh(ctx context.Context, refresh string) (models.User, models.TokenPair, error)
}

func handleSignUp(auth sessionService, l logger.Logger) http.Handler {
	type request struct {
		Name     string `json:"name" validate:"required,min=2,max=100"`
		Email    string `json:"email" validate:"required,email"`
		Role     string `json:"role" validate:"omitempty,oneof=user admin"`
		Password string `json:"password" validate:"required,min=8"`
	}
	type response struct {
		User         userResponse `json:"user"`
		AccessToken  string       `json:"accessToken"`
		RefreshToken string       `json:"refreshToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, pair, err := auth.SignUp(r.Context(), data.Name, data.Email, data.Role, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrEmailTaken):
				render.ServiceError(w, "Email already taken", http.StatusConflict)
			default:
				l.Error("sign up failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSONWithStatus(w, response{
			User:         toUserResponse(user),
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
		}, http.StatusCreated)
	})
}

func handleSignIn(auth sessionService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		User         userResponse `json:"user"`
		AccessToken  string       `json:"accessToken"`
		RefreshToken string       `json:"refreshToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, pair, err := auth.SignIn(r.Context(), data.Email, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
			default:
				l.Error("sign in failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{
			User:         toUserResponse(user),
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
		})
	})
}

func handleTokenRefresh(auth sessionService, l logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	type response struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		_, pair, err := auth.Refresh(r.Context(), data.RefreshToken)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				// Covers never issued and already superseded tokens alike
				render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
			default:
				l.Error("token refresh failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
		})
	})
}
