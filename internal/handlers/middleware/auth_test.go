package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akarpov/userhub/internal/apperrors"
	"github.com/akarpov/userhub/internal/handlers/identityctx"
	"github.com/akarpov/userhub/internal/logger"
	"github.com/akarpov/userhub/internal/models"
)

// Allow to use a function as access parser
type parserFunc func(access string) (models.Identity, error)

func (f parserFunc) ParseAccess(access string) (models.Identity, error) {
	return f(access)
}

func TestAuthMiddleware(t *testing.T) {
	// Simple handler that writes the identity from context to the response
	// Must only ever run with identity attached: the gate promises that
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityctx.FromContext(r.Context())
		require.True(t, ok, "guarded handler must always see an identity")

		w.WriteHeader(http.StatusOK)
		_, err := fmt.Fprintf(w, "%d:%s", identity.UserID, identity.Role)
		require.NoError(t, err)
	})

	okParser := parserFunc(func(access string) (models.Identity, error) {
		if access == "valid-token" {
			return models.Identity{UserID: 42, Role: "user"}, nil
		}
		return models.Identity{}, apperrors.ErrTokenMalformed
	})

	doRequest := func(t *testing.T, middleware func(http.Handler) http.Handler, authHeader string) (*http.Response, string) {
		t.Helper()

		srv := httptest.NewServer(middleware(handler))
		t.Cleanup(srv.Close)

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/test", nil)
		require.NoError(t, err)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		return resp, string(body)
	}

	t.Run("auth ok", func(t *testing.T) {
		middleware := Auth(okParser, logger.NewNoOp())

		resp, body := doRequest(t, middleware, "Bearer valid-token")

		require.Equalf(t, http.StatusOK, resp.StatusCode, "should return status OK. Resp: %s", body)
		require.Equal(t, "42:user", body, "should pass the decoded identity to the handler")
	})

	t.Run("no token", func(t *testing.T) {
		tests := []struct {
			name   string
			header string
		}{
			{name: "missing header", header: ""},
			{name: "wrong scheme", header: "Basic dXNlcjpwd2Q="},
			{name: "scheme without token", header: "Bearer"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				middleware := Auth(okParser, logger.NewNoOp())

				resp, body := doRequest(t, middleware, tt.header)

				require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Resp: %s", body)
				require.JSONEq(t,
					`{
						"error": "service_error",
						"message": "Unauthorized"
					}`,
					body,
				)
			})
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		// Expired and malformed look identical to the client
		for _, parseErr := range []error{apperrors.ErrTokenExpired, apperrors.ErrTokenMalformed} {
			t.Run(parseErr.Error(), func(t *testing.T) {
				middleware := Auth(parserFunc(func(access string) (models.Identity, error) {
					return models.Identity{}, parseErr
				}), logger.NewNoOp())

				resp, body := doRequest(t, middleware, "Bearer anything")

				require.Equalf(t, http.StatusForbidden, resp.StatusCode, "not expected code. Resp: %s", body)
				require.JSONEq(t,
					`{
						"error": "service_error",
						"message": "Forbidden"
					}`,
					body,
				)
			})
		}
	})

	t.Run("role allow-list", func(t *testing.T) {
		t.Run("role allowed", func(t *testing.T) {
			middleware := Auth(parserFunc(func(access string) (models.Identity, error) {
				return models.Identity{UserID: 1, Role: "admin"}, nil
			}), logger.NewNoOp(), "admin")

			resp, _ := doRequest(t, middleware, "Bearer valid-token")

			require.Equal(t, http.StatusOK, resp.StatusCode)
		})

		t.Run("role denied", func(t *testing.T) {
			middleware := Auth(okParser, logger.NewNoOp(), "admin")

			resp, body := doRequest(t, middleware, "Bearer valid-token")

			require.Equalf(t, http.StatusForbidden, resp.StatusCode, "not expected code. Resp: %s", body)
			require.JSONEq(t,
				`{
					"error": "service_error",
					"message": "Access denied for this role"
				}`,
				body,
			)
		})
	})

	t.Run("handler never runs on failure", func(t *testing.T) {
		ran := false
		guarded := Auth(parserFunc(func(access string) (models.Identity, error) {
			return models.Identity{}, errors.New("nope")
		}), logger.NewNoOp())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ran = true
		}))

		srv := httptest.NewServer(guarded)
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer whatever")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.False(t, ran, "guarded handler must be short-circuited")
	})
}
