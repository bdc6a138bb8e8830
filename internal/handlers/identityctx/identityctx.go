package identityctx

import (
	"context"

	"github.com/akarpov/userhub/internal/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Create a new context carrying the verified identity.
// Only the auth middleware should call it: handlers behind the gate may
// then rely on FromContext returning ok.
func New(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Extract the identity the auth middleware attached
func FromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}
