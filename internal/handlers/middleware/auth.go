package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/akarpov/userhub/internal/handlers/identityctx"
	"github.com/akarpov/userhub/internal/handlers/render"
	"github.com/akarpov/userhub/internal/logger"
	"github.com/akarpov/userhub/internal/models"
)

const bearerScheme = "Bearer"

type accessParser interface {
	// Verify access token and return the identity it carries
	ParseAccess(access string) (models.Identity, error)
}

// Auth guards handlers behind a bearer token check and an optional role
// allow-list. The guarded handler never runs without a verified identity
// in its context.
//
//   - missing token: 401
//   - invalid token (expired or malformed alike): 403
//   - role not in a non-empty allow-list: 403
func Auth(parser accessParser, l logger.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := parser.ParseAccess(token)
			if err != nil {
				// The exact failure kind stays in the logs, the client
				// only learns the request is forbidden
				l.Debug("access token rejected", "error", err.Error())
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
				return
			}

			if len(roles) > 0 && !slices.Contains(roles, identity.Role) {
				render.ServiceError(w, "Access denied for this role", http.StatusForbidden)
				return
			}

			ctx := identityctx.New(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from 'Authorization: Bearer <token>'
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) || token == "" {
		return "", false
	}

	return token, true
}
