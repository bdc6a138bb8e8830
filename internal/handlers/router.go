package handlers

import (
	"net/http"

	"github.com/akarpov/userhub/internal/handlers/middleware"
	"github.com/akarpov/userhub/internal/logger"
	"github.com/akarpov/userhub/internal/models"
	"github.com/akarpov/userhub/internal/notify"
)

type accessParser interface {
	ParseAccess(access string) (models.Identity, error)
}

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	auth sessionService,
	users userService,
	parser accessParser,
	broker notify.Broker,
	l logger.Logger,
) http.Handler {
	withAuth := middleware.Auth(parser, l)
	withAdmin := middleware.Auth(parser, l, models.RoleAdmin)

	mux := http.NewServeMux()

	mux.Handle("POST /users", handleSignUp(auth, l))
	mux.Handle("POST /users/login", handleSignIn(auth, l))
	mux.Handle("POST /users/refresh-token", handleTokenRefresh(auth, l))

	mux.Handle("GET /users/me", withAuth(handleUserMe(users, l)))
	mux.Handle("GET /users/notifications", withAuth(handleNotifications(broker, l)))
	mux.Handle("GET /users/{id}", withAdmin(handleGetUser(users, l)))
	mux.Handle("PUT /users/{id}", withAuth(handleUpdateUser(users, l)))
	mux.Handle("DELETE /users/{id}", withAuth(handleDeleteUser(users, l)))
	mux.Handle("POST /users/{id}/avatar", withAuth(handleAvatarUpload(users, l)))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return chain(mux,
		middleware.Logger(l),
	)
}
