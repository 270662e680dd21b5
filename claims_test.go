package auth_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-tenant-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaimsMap(t *testing.T) {
	tests := []struct {
		name    string
		bag     map[string]any
		want    auth.ClaimsSet
		wantNil bool
		wantErr bool
	}{
		{
			name:    "nil bag means no authority yet",
			bag:     nil,
			wantNil: true,
		},
		{
			name:    "empty bag means no authority yet",
			bag:     map[string]any{},
			wantNil: true,
		},
		{
			name: "super admin flag",
			bag:  map[string]any{"super_admin": true},
			want: auth.SuperAdminClaims{},
		},
		{
			name: "member claims",
			bag:  map[string]any{"role": "admin", "org_id": "org-1"},
			want: auth.MemberClaims{Role: auth.RoleAdmin, Org: "org-1"},
		},
		{
			name:    "super admin flag false is malformed",
			bag:     map[string]any{"super_admin": false},
			wantErr: true,
		},
		{
			name:    "super admin flag must be boolean",
			bag:     map[string]any{"super_admin": "true"},
			wantErr: true,
		},
		{
			name:    "role and super admin are mutually exclusive",
			bag:     map[string]any{"super_admin": true, "role": "admin"},
			wantErr: true,
		},
		{
			name:    "role without org is malformed",
			bag:     map[string]any{"role": "admin"},
			wantErr: true,
		},
		{
			name:    "org without role is malformed",
			bag:     map[string]any{"org_id": "org-1"},
			wantErr: true,
		},
		{
			name:    "unknown role is malformed",
			bag:     map[string]any{"role": "owner", "org_id": "org-1"},
			wantErr: true,
		},
		{
			name:    "superadmin sentinel is not a member role",
			bag:     map[string]any{"role": "superadmin", "org_id": "org-1"},
			wantErr: true,
		},
		{
			name:    "empty org binding is malformed",
			bag:     map[string]any{"role": "admin", "org_id": ""},
			wantErr: true,
		},
		{
			name:    "non-string role is malformed",
			bag:     map[string]any{"role": 3, "org_id": "org-1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.ParseClaimsMap(tt.bag)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, auth.TextCodeMalformedClaims, auth.RejectionTextCode(err))
				return
			}

			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClaimsMap_RoundTrip(t *testing.T) {
	variants := []auth.ClaimsSet{
		auth.SuperAdminClaims{},
		auth.MemberClaims{Role: auth.RoleViewer, Org: "org-9"},
		auth.MemberClaims{Role: auth.RoleAdmin, Org: "org-1"},
	}

	for _, claims := range variants {
		got, err := auth.ParseClaimsMap(claims.ClaimsMap())
		require.NoError(t, err)
		assert.Equal(t, claims, got)
	}
}

func TestSuperAdminClaims(t *testing.T) {
	claims := auth.SuperAdminClaims{}

	assert.True(t, claims.IsSuperAdmin())
	assert.Empty(t, claims.OrgID())
	assert.True(t, claims.HasRole(auth.RoleViewer))
	assert.True(t, claims.HasRole(auth.RoleAdmin))
	assert.True(t, claims.IsAtLeast(auth.RoleAdmin))
	assert.Equal(t, map[string]any{"super_admin": true}, claims.ClaimsMap())
}

func TestMemberClaims(t *testing.T) {
	claims := auth.MemberClaims{Role: auth.RoleUser, Org: "org-1"}

	assert.False(t, claims.IsSuperAdmin())
	assert.Equal(t, "org-1", claims.OrgID())
	assert.True(t, claims.HasRole(auth.RoleUser))
	assert.False(t, claims.HasRole(auth.RoleAdmin))
	assert.True(t, claims.IsAtLeast(auth.RoleViewer))
	assert.True(t, claims.IsAtLeast(auth.RoleUser))
	assert.False(t, claims.IsAtLeast(auth.RoleAdmin))
}

func TestClaimsForUser(t *testing.T) {
	orgID := uuid.New()

	t.Run("nil user has no claims", func(t *testing.T) {
		claims, ok := auth.ClaimsForUser(nil)
		assert.False(t, ok)
		assert.Nil(t, claims)
	})

	t.Run("operator record maps to super claims", func(t *testing.T) {
		claims, ok := auth.ClaimsForUser(&auth.User{Role: auth.RoleSuperAdmin})
		require.True(t, ok)
		assert.True(t, claims.IsSuperAdmin())
	})

	t.Run("member record maps to member claims", func(t *testing.T) {
		claims, ok := auth.ClaimsForUser(&auth.User{Role: auth.RoleUser, OrgID: &orgID})
		require.True(t, ok)
		assert.Equal(t, orgID.String(), claims.OrgID())
		assert.True(t, claims.HasRole(auth.RoleUser))
	})

	t.Run("cleared binding has no claims", func(t *testing.T) {
		_, ok := auth.ClaimsForUser(&auth.User{Email: "x@example.com"})
		assert.False(t, ok)

		_, ok = auth.ClaimsForUser(&auth.User{Role: auth.RoleUser})
		assert.False(t, ok)

		_, ok = auth.ClaimsForUser(&auth.User{OrgID: &orgID})
		assert.False(t, ok)
	})
}

func TestSessionClaims_Authority(t *testing.T) {
	t.Run("member token decodes to member claims", func(t *testing.T) {
		sc := &auth.SessionClaims{UserRole: auth.RoleAdmin, UserOrgID: "org-1"}

		claims, err := sc.Authority()
		require.NoError(t, err)
		assert.Equal(t, auth.MemberClaims{Role: auth.RoleAdmin, Org: "org-1"}, claims)
	})

	t.Run("operator token decodes to super claims", func(t *testing.T) {
		sc := &auth.SessionClaims{SuperAdmin: true}

		claims, err := sc.Authority()
		require.NoError(t, err)
		assert.True(t, claims.IsSuperAdmin())
	})

	t.Run("token without authority claims errors", func(t *testing.T) {
		sc := &auth.SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		}

		_, err := sc.Authority()
		assert.Error(t, err)
	})
}

func TestSessionClaims_RoleChecks(t *testing.T) {
	member := &auth.SessionClaims{UserRole: auth.RoleUser, UserOrgID: "org-1"}
	assert.True(t, member.HasRole(auth.RoleUser))
	assert.False(t, member.HasRole(auth.RoleAdmin))
	assert.True(t, member.IsAtLeast(auth.RoleViewer))
	assert.False(t, member.IsAtLeast(auth.RoleAdmin))

	super := &auth.SessionClaims{SuperAdmin: true}
	assert.True(t, super.HasRole(auth.RoleAdmin))
	assert.True(t, super.IsAtLeast(auth.RoleAdmin))
}

func TestNewSessionClaims(t *testing.T) {
	orgID := uuid.New()
	user := &auth.User{
		ID:    uuid.New(),
		Email: "member@example.com",
		Role:  auth.RoleUser,
		OrgID: &orgID,
	}

	t.Run("member", func(t *testing.T) {
		sc := auth.NewSessionClaims(user, auth.MemberClaims{Role: auth.RoleUser, Org: orgID.String()})

		assert.Equal(t, user.ID.String(), sc.UserID())
		assert.Equal(t, user.Email, sc.Email)
		assert.Equal(t, auth.RoleUser, sc.UserRole)
		assert.Equal(t, orgID.String(), sc.UserOrgID)
		assert.False(t, sc.SuperAdmin)
	})

	t.Run("operator", func(t *testing.T) {
		sc := auth.NewSessionClaims(user, auth.SuperAdminClaims{})

		assert.True(t, sc.SuperAdmin)
		assert.Empty(t, sc.UserRole)
		assert.Empty(t, sc.UserOrgID)
	})

	t.Run("no claims", func(t *testing.T) {
		sc := auth.NewSessionClaims(user, nil)

		assert.False(t, sc.SuperAdmin)
		assert.Empty(t, sc.UserRole)
	})
}
