package models

import (
	"time"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by TokenManager and session service
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// Identity decoded from a verified access token.
// The auth middleware attaches it to the request context,
// handlers read it back instead of re-parsing the token.
type Identity struct {
	UserID int64
	Role   string
}

// IsAdmin reports whether the identity may act on other users' records
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
