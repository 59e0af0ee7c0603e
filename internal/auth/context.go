package auth

import (
	"context"
	"strings"
)

type identityContextKey struct{}

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID string
	Role   string
}

// ContextWithIdentity stores the authenticated identity in the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	id.UserID = strings.TrimSpace(id.UserID)
	id.Role = strings.TrimSpace(strings.ToLower(id.Role))
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	v, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || v.UserID == "" {
		return Identity{}, false
	}
	return v, true
}

// HasRole checks the context identity against a required role. Only exact
// equality counts; there is no role hierarchy.
func HasRole(ctx context.Context, role string) bool {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		return false
	}
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return false
	}
	return id.Role == role
}
