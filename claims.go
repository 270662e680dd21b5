package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim keys used inside credential payloads and hook responses. Downstream
// authorization code should read these through ParseClaimsMap rather than
// poking at the bag directly.
const (
	ClaimKeyRole       = "role"
	ClaimKeyOrgID      = "org_id"
	ClaimKeySuperAdmin = "super_admin"
)

// ClaimsSet is the closed set of authority shapes a credential may assert.
// Exactly two variants exist: SuperAdminClaims and MemberClaims. The role
// field and the super admin flag are never both meaningful on the same
// identity.
type ClaimsSet interface {
	RoleChecker

	// ClaimsMap encodes the variant into the key-value bag attached to the
	// identity provider credential.
	ClaimsMap() map[string]any

	// OrgID returns the organization binding, empty for the super admin.
	OrgID() string

	// IsSuperAdmin reports whether this is the operator override variant.
	IsSuperAdmin() bool
}

// SuperAdminClaims is the operator override variant. It carries no role and
// no organization; every role check passes unconditionally.
type SuperAdminClaims struct{}

var _ ClaimsSet = SuperAdminClaims{}

func (SuperAdminClaims) ClaimsMap() map[string]any {
	return map[string]any{ClaimKeySuperAdmin: true}
}

func (SuperAdminClaims) OrgID() string { return "" }

func (SuperAdminClaims) IsSuperAdmin() bool { return true }

// HasRole always passes: the super admin satisfies every role check.
func (SuperAdminClaims) HasRole(MemberRole) bool { return true }

// IsAtLeast always passes: the super admin satisfies every level.
func (SuperAdminClaims) IsAtLeast(MemberRole) bool { return true }

// MemberClaims binds a principal to exactly one role in exactly one
// organization.
type MemberClaims struct {
	Role MemberRole `json:"role"`
	Org  string     `json:"org_id"`
}

var _ ClaimsSet = MemberClaims{}

func (m MemberClaims) ClaimsMap() map[string]any {
	return map[string]any{
		ClaimKeyRole:  m.Role,
		ClaimKeyOrgID: m.Org,
	}
}

func (m MemberClaims) OrgID() string { return m.Org }

func (m MemberClaims) IsSuperAdmin() bool { return false }

func (m MemberClaims) HasRole(role MemberRole) bool {
	return m.Role == role
}

func (m MemberClaims) IsAtLeast(minRole MemberRole) bool {
	return RoleAtLeast(m.Role, minRole)
}

// ParseClaimsMap decodes a generic claims bag into one of the two ClaimsSet
// variants. The parse is total: a bag that matches neither variant is an
// error, never a silently defaulted member. A nil or empty bag returns
// (nil, nil) which callers must treat as "no authority attached yet" (the
// pre-materialization window), not as a malformed credential.
func ParseClaimsMap(bag map[string]any) (ClaimsSet, error) {
	if len(bag) == 0 {
		return nil, nil
	}

	if super, ok := bag[ClaimKeySuperAdmin]; ok {
		flag, isBool := super.(bool)
		if !isBool {
			return nil, ErrMalformedClaims.Clone().WithMetadata(map[string]any{
				"field": ClaimKeySuperAdmin,
			})
		}
		if !flag {
			return nil, ErrMalformedClaims.Clone().WithMetadata(map[string]any{
				"field":  ClaimKeySuperAdmin,
				"reason": "flag present but false",
			})
		}
		if _, hasRole := bag[ClaimKeyRole]; hasRole {
			return nil, ErrMalformedClaims.Clone().WithMetadata(map[string]any{
				"reason": "role and super_admin are mutually exclusive",
			})
		}
		return SuperAdminClaims{}, nil
	}

	roleRaw, hasRole := bag[ClaimKeyRole]
	orgRaw, hasOrg := bag[ClaimKeyOrgID]
	if !hasRole || !hasOrg {
		return nil, ErrMalformedClaims.Clone().WithMetadata(map[string]any{
			"reason": "member claims require both role and org_id",
		})
	}

	roleStr, roleOK := roleRaw.(string)
	orgID, orgOK := orgRaw.(string)
	if !roleOK || !orgOK {
		return nil, ErrMalformedClaims.Clone().WithMetadata(map[string]any{
			"reason": "role and org_id must be strings",
		})
	}

	role, valid := ParseMemberRole(roleStr)
	if !valid {
		return nil, ErrMalformedClaims.Clone().WithMetadata(map[string]any{
			"field": ClaimKeyRole,
			"value": roleStr,
		})
	}

	if orgID == "" {
		return nil, ErrMalformedClaims.Clone().WithMetadata(map[string]any{
			"field":  ClaimKeyOrgID,
			"reason": "empty org binding",
		})
	}

	return MemberClaims{Role: role, Org: orgID}, nil
}

// ClaimsForUser derives the authoritative ClaimsSet from a membership
// record. Returns (nil, false) when the record carries no usable binding.
func ClaimsForUser(user *User) (ClaimsSet, bool) {
	if user == nil {
		return nil, false
	}
	if user.IsSuperAdmin() {
		return SuperAdminClaims{}, true
	}
	if !user.HasMembership() {
		return nil, false
	}
	return MemberClaims{Role: user.Role, Org: user.OrgID.String()}, true
}

// SessionClaims is the verified payload of the downstream bearer credential.
// It carries exactly the ClaimsSet fields plus the standard identity fields;
// downstream services trust them only as of the token's issuance.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email      string     `json:"email,omitempty"`
	UserRole   MemberRole `json:"role,omitempty"`
	UserOrgID  string     `json:"org_id,omitempty"`
	SuperAdmin bool       `json:"super_admin,omitempty"`
}

var _ RoleChecker = (*SessionClaims)(nil)

// UserID returns the subject identity id.
func (c *SessionClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Authority decodes the token payload back into the closed ClaimsSet union.
func (c *SessionClaims) Authority() (ClaimsSet, error) {
	bag := map[string]any{}
	if c.SuperAdmin {
		bag[ClaimKeySuperAdmin] = true
	}
	if c.UserRole != "" {
		bag[ClaimKeyRole] = string(c.UserRole)
	}
	if c.UserOrgID != "" {
		bag[ClaimKeyOrgID] = c.UserOrgID
	}
	claims, err := ParseClaimsMap(bag)
	if err != nil {
		return nil, err
	}
	if claims == nil {
		return nil, ErrMalformedClaims.Clone().WithMetadata(map[string]any{
			"reason": "token carries no authority claims",
		})
	}
	return claims, nil
}

// HasRole checks for an exact role match, with the super admin override.
func (c *SessionClaims) HasRole(role MemberRole) bool {
	if c.SuperAdmin {
		return true
	}
	return c.UserRole == role
}

// IsAtLeast checks the hierarchy, with the super admin override.
func (c *SessionClaims) IsAtLeast(minRole MemberRole) bool {
	if c.SuperAdmin {
		return true
	}
	return RoleAtLeast(c.UserRole, minRole)
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// NewSessionClaims builds token claims for a user and its derived authority.
func NewSessionClaims(user *User, claims ClaimsSet) *SessionClaims {
	sc := &SessionClaims{}
	if user != nil {
		sc.RegisteredClaims.Subject = user.ID.String()
		sc.Email = user.Email
	}
	if claims == nil {
		return sc
	}
	if claims.IsSuperAdmin() {
		sc.SuperAdmin = true
		return sc
	}
	if member, ok := claims.(MemberClaims); ok {
		sc.UserRole = member.Role
		sc.UserOrgID = member.Org
	}
	return sc
}
