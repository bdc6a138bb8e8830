package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_BindAndValidate(t *testing.T) {
	t.Parallel()

	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}

	newRequest := func(body string) (*httptest.ResponseRecorder, *http.Request) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		return w, r
	}

	t.Run("valid body", func(t *testing.T) {
		w, r := newRequest(`{"email": "anna@example.com", "password": "longenough"}`)

		got, err := BindAndValidate[request](w, r)

		require.NoError(t, err)
		require.Equal(t, "anna@example.com", got.Email)
		require.Equal(t, "longenough", got.Password)
	})

	t.Run("broken json", func(t *testing.T) {
		w, r := newRequest(`{"email": `)

		_, err := BindAndValidate[request](w, r)

		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), DecodingErrorType)
	})

	t.Run("wrong field type", func(t *testing.T) {
		w, r := newRequest(`{"email": 42, "password": "longenough"}`)

		_, err := BindAndValidate[request](w, r)

		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), "email", "error should name the offending json field")
	})

	t.Run("validation failure uses json names", func(t *testing.T) {
		w, r := newRequest(`{"email": "not-an-email", "password": "short"}`)

		_, err := BindAndValidate[request](w, r)

		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.JSONEq(t, `
			{
				"error": "validation_failed",
				"message": "Request validation failed",
				"fields": {
					"email": "Must be a valid email address",
					"password": "Value is too short (minimum 8)"
				}
			}`, w.Body.String())
	})
}

func Test_ServiceError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	ServiceError(w, "Something broke", http.StatusConflict)

	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	require.JSONEq(t, `
		{
			"error": "service_error",
			"message": "Something broke"
		}`, w.Body.String())
}
