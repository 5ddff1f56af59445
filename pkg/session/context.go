package session

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated caller attached to a request context after
// successful validation.
type Identity struct {
	SessionID string
	UserID    uuid.UUID
	Role      Role
	Record    *Record
}

type identityContextKey struct{}

// WithIdentity attaches an identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext retrieves the identity from the context. The second
// return value is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

// UserIDFromContext retrieves the authenticated user ID from the context.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return id.UserID, true
}
