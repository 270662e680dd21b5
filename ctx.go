package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the ClaimsSet in the given context
func WithClaimsContext(r context.Context, claims ClaimsSet) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the ClaimsSet from the standard context
func GetClaims(ctx context.Context) (ClaimsSet, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(ClaimsSet)
	return raw, ok
}

// GetRouterSession extracts the verified session from the router context.
func GetRouterSession(ctx router.Context, key string) (*SessionObject, bool) {
	if key == "" {
		key = "session"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	session, ok := raw.(*SessionObject)
	return session, ok
}

// IsAtLeast is a convenience check directly from the standard context. The
// operator override applies; a context with no claims satisfies nothing.
func IsAtLeast(ctx context.Context, minRole MemberRole) bool {
	claims, ok := GetClaims(ctx)
	if !ok {
		return false
	}
	return claims.IsAtLeast(minRole)
}

// SameOrg checks whether the context's claims bind to the given org. The
// operator override passes for every org.
func SameOrg(ctx context.Context, orgID string) bool {
	claims, ok := GetClaims(ctx)
	if !ok {
		return false
	}
	if claims.IsSuperAdmin() {
		return true
	}
	return claims.OrgID() == orgID
}
