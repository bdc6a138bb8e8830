package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/akarpov/userhub/internal/apperrors"
	"github.com/akarpov/userhub/internal/models"
)

const (
	defaultAccessTokenTTL  = time.Hour
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
}

// Token manager config with sensible defaults
type Config struct {
	// Secret key to sign access tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set then default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set then defaults are used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager issues and verifies access tokens and mints opaque
// refresh token values. It holds no storage: persisting the refresh
// slot is the session service's job.
type TokenManager struct {
	key        string
	alg        jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(cfg Config) (*TokenManager, error) {
	// Missing key is a misconfiguration, not a per-request condition.
	// Callers treat this error as fatal at startup.
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if alg == nil {
		return nil, fmt.Errorf("unknown signing method: %q", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:        cfg.SecretKey,
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// IssueAccess signs a new access token carrying the user id and role
func (m *TokenManager) IssueAccess(userID int64, role string) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			UserID: userID,
			Role:   role,
		},
	)

	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// NewRefresh mints an opaque refresh token value.
// UUIDv4 gives 122 bits of entropy, collisions are negligible and the
// store's unique index on the slot column is the last line of defense.
func (m *TokenManager) NewRefresh() models.IssuedToken {
	return models.IssuedToken{
		Value:     uuid.NewString(),
		ExpiresAt: time.Now().Truncate(time.Second).Add(m.refreshTTL),
	}
}

// ParseAccess verifies the token and returns the identity it carries.
// Expired and malformed tokens fail differently:
//   - apperrors.ErrTokenExpired for a well-formed token past its expiry
//   - apperrors.ErrTokenMalformed for bad structure, signature or algorithm
func (m *TokenManager) ParseAccess(access string) (models.Identity, error) {
	claims := &AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(m.key), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil:
		return models.Identity{UserID: claims.UserID, Role: claims.Role}, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return models.Identity{}, fmt.Errorf("%w: %w", apperrors.ErrTokenExpired, err)
	default:
		return models.Identity{}, fmt.Errorf("%w: %w", apperrors.ErrTokenMalformed, err)
	}
}
