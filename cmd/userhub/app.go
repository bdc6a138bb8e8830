package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akarpov/userhub/internal/db"
	"github.com/akarpov/userhub/internal/handlers"
	"github.com/akarpov/userhub/internal/logger"
	"github.com/akarpov/userhub/internal/media"
	"github.com/akarpov/userhub/internal/notify"
	"github.com/akarpov/userhub/internal/repository/postgres"
	"github.com/akarpov/userhub/internal/service/auth"
	"github.com/akarpov/userhub/internal/service/auth/tokenmanager"
	"github.com/akarpov/userhub/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Absent signing secret is a misconfiguration: refuse to start
	// rather than fail every token operation later
	if c.SecretKey == "" {
		return nil, errors.New("secret key is required, set SECRET_KEY or pass --secret-key")
	}

	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	userRepo := &postgres.UserRepo{DB: pool}

	// Notification broker: Redis when configured, in-process hub otherwise
	var broker notify.Broker = notify.NewHub()
	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		broker = notify.NewRedisBroker(client, "")
		l.Info("using redis notification broker", "addr", c.RedisAddr)
	}

	// Avatar storage is optional
	var mediaStore user.Media
	if c.S3.Enabled() {
		store, err := media.New(ctx, c.S3)
		if err != nil {
			return nil, fmt.Errorf("error while initializing media store. Err: %w", err)
		}
		mediaStore = store
		l.Info("avatar uploads enabled", "bucket", c.S3.Bucket)
	}

	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{}, tokenManager, userRepo, broker)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	userService := user.NewService(nil, userRepo, broker, mediaStore)

	mux := handlers.NewRouter(authService, userService, tokenManager, broker, l)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
