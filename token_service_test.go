package auth_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-tenant-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key-for-unit-tests")

func newTestTokenService() auth.TokenService {
	return auth.NewTokenService(testSigningKey, 1, "test-issuer", jwt.ClaimStrings{"test-audience"}, nopLogger{})
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := newTestTokenService()
	orgID := uuid.New()
	user := &auth.User{
		ID:    uuid.New(),
		Email: "member@example.com",
		Role:  auth.RoleAdmin,
		OrgID: &orgID,
	}
	claims, ok := auth.ClaimsForUser(user)
	require.True(t, ok)

	token, err := svc.Generate(user, claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), decoded.UserID())
	assert.Equal(t, user.Email, decoded.Email)
	assert.Equal(t, auth.RoleAdmin, decoded.UserRole)
	assert.Equal(t, orgID.String(), decoded.UserOrgID)
	assert.False(t, decoded.SuperAdmin)

	authority, err := decoded.Authority()
	require.NoError(t, err)
	assert.Equal(t, auth.MemberClaims{Role: auth.RoleAdmin, Org: orgID.String()}, authority)
}

func TestTokenService_OperatorToken(t *testing.T) {
	svc := newTestTokenService()
	user := &auth.User{
		ID:    uuid.New(),
		Email: "ops@example.com",
		Role:  auth.RoleSuperAdmin,
	}
	claims, ok := auth.ClaimsForUser(user)
	require.True(t, ok)

	token, err := svc.Generate(user, claims)
	require.NoError(t, err)

	decoded, err := svc.Validate(token)
	require.NoError(t, err)
	assert.True(t, decoded.SuperAdmin)
	assert.Empty(t, decoded.UserRole)
	assert.True(t, decoded.IsAtLeast(auth.RoleAdmin))
}

func TestTokenService_GenerateRequiresUser(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.Generate(nil, auth.SuperAdminClaims{})
	assert.Error(t, err)
}

func TestTokenService_ValidateRejectsTampering(t *testing.T) {
	svc := newTestTokenService()
	other := auth.NewTokenService([]byte("a-different-signing-key!"), 1, "test-issuer", jwt.ClaimStrings{"test-audience"}, nopLogger{})

	user := &auth.User{ID: uuid.New(), Email: "x@example.com", Role: auth.RoleSuperAdmin}
	token, err := other.Generate(user, auth.SuperAdminClaims{})
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	assert.Equal(t, "auth_token_malformed", auth.RejectionTextCode(err))
}

func TestTokenService_ValidateRejectsExpired(t *testing.T) {
	// negative expiration puts the deadline in the past at issuance
	svc := auth.NewTokenService(testSigningKey, -1, "test-issuer", jwt.ClaimStrings{"test-audience"}, nopLogger{})

	user := &auth.User{ID: uuid.New(), Email: "x@example.com", Role: auth.RoleSuperAdmin}
	token, err := svc.Generate(user, auth.SuperAdminClaims{})
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestTokenService_ValidateRejectsGarbage(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.Validate("not-a-token")
	assert.Error(t, err)
}

func TestTokenService_ValidateChecksIssuer(t *testing.T) {
	svc := newTestTokenService()
	other := auth.NewTokenService(testSigningKey, 1, "other-issuer", jwt.ClaimStrings{"test-audience"}, nopLogger{})

	user := &auth.User{ID: uuid.New(), Email: "x@example.com", Role: auth.RoleSuperAdmin}
	token, err := other.Generate(user, auth.SuperAdminClaims{})
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}
