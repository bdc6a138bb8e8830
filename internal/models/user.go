package models

import (
	"time"
)

// User roles known to the service
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             int64
	CreatedAt      time.Time
	Name           string
	Email          string
	Role           string
	HashedPassword string

	// Current refresh token slot. Nil when no token outstanding.
	// At most one value per user: issuing a new token overwrites the slot
	// and implicitly invalidates the previous one.
	RefreshToken *string

	// Expiry of the current refresh token, set together with the slot.
	// A value past this point must not rotate anymore.
	RefreshTokenExpiresAt *time.Time

	// Object storage key of the uploaded avatar, nil when not set
	AvatarKey *string
}
