package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// NewIdentity is the payload the identity platform delivers once it has
// durably created an account. DisplayName and PhotoURL are optional.
type NewIdentity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// HookDecision is the outcome of a blocking hook: the claims to attach to
// the credential, or nothing. A nil Claims with a nil error is a deliberate
// empty-claims approve (the not-yet-materialized window on first sign-in).
type HookDecision struct {
	Claims ClaimsSet
}

// LifecycleHooks is the surface the identity platform invokes at account
// lifecycle points. BeforeCreate and BeforeSignIn may block the operation by
// returning an error; AfterCreate errors are logged and retried by the
// platform, never surfaced to the signing-in user.
type LifecycleHooks interface {
	BeforeCreate(ctx context.Context, email string) (HookDecision, error)
	BeforeSignIn(ctx context.Context, uid, email string) (HookDecision, error)
	AfterCreate(ctx context.Context, identity NewIdentity) error
}

// IdentityStore is the slice of the identity provider admin API this module
// drives: attaching a claims bag to an identity and forcing credential
// refresh. The hooks themselves never call it (hook responses carry claims);
// admin commands use it so a role change does not wait for the next sign-in.
type IdentityStore interface {
	SetClaims(ctx context.Context, uid string, claims map[string]any) error
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

type noopIdentityStore struct{}

func (noopIdentityStore) SetClaims(context.Context, string, map[string]any) error { return nil }
func (noopIdentityStore) RevokeRefreshTokens(context.Context, string) error       { return nil }

// TokenService mints and validates downstream session credentials.
type TokenService interface {
	Generate(user *User, claims ClaimsSet) (string, error)
	SignClaims(claims *SessionClaims) (string, error)
	Validate(tokenString string) (*SessionClaims, error)
}

// TokenValidator validates externally issued tokens (e.g. hook event
// payloads signed by the identity platform).
type TokenValidator interface {
	Validate(tokenString string) (*SessionClaims, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time

func normalizeClock(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func normalizeIdentityStore(s IdentityStore) IdentityStore {
	if s == nil {
		return noopIdentityStore{}
	}
	return s
}
