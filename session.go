package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}
var _ RoleChecker = &SessionObject{}

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetAudience() []string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetData() map[string]any
}

// SessionObject is the decoded credential a downstream request handler sees.
type SessionObject struct {
	UserID         string         `json:"user_id,omitempty"`
	Email          string         `json:"email,omitempty"`
	Audience       []string       `json:"audience,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetData() map[string]any {
	return s.Data
}

// Authority decodes the claims bag carried in Data into the closed union.
// Returns (nil, nil) for a session with no authority attached yet.
func (s *SessionObject) Authority() (ClaimsSet, error) {
	return ParseClaimsMap(s.Data)
}

// IsSuperAdmin reports whether the session carries the operator override.
func (s *SessionObject) IsSuperAdmin() bool {
	if s.Data == nil {
		return false
	}
	flag, ok := s.Data[ClaimKeySuperAdmin].(bool)
	return ok && flag
}

// OrgID returns the organization binding, empty for the operator and for
// sessions with no authority yet.
func (s *SessionObject) OrgID() string {
	if s.Data == nil {
		return ""
	}
	org, _ := s.Data[ClaimKeyOrgID].(string)
	return org
}

// HasRole checks for an exact role match, with the operator override.
func (s *SessionObject) HasRole(role MemberRole) bool {
	if s.IsSuperAdmin() {
		return true
	}
	return s.getRole() == role
}

// IsAtLeast checks if the session's role is at least the minimum required
// role. The operator override satisfies every level.
func (s *SessionObject) IsAtLeast(minRole MemberRole) bool {
	if s.IsSuperAdmin() {
		return true
	}
	return RoleAtLeast(s.getRole(), minRole)
}

func (s *SessionObject) getRole() MemberRole {
	if s.Data == nil {
		return ""
	}
	if roleData, exists := s.Data[ClaimKeyRole]; exists {
		if roleStr, ok := roleData.(string); ok {
			if role, valid := ParseMemberRole(roleStr); valid {
				return role
			}
		}
	}
	return ""
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s aud=%v iss=%s iat=%s data=%v",
		s.UserID,
		s.Audience,
		s.Issuer,
		issuedAt,
		s.Data,
	)
}

// SessionFromClaims creates a SessionObject from verified session claims.
func SessionFromClaims(claims *SessionClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	data := make(map[string]any)
	if claims.SuperAdmin {
		data[ClaimKeySuperAdmin] = true
	}
	if claims.UserRole != "" {
		data[ClaimKeyRole] = string(claims.UserRole)
	}
	if claims.UserOrgID != "" {
		data[ClaimKeyOrgID] = claims.UserOrgID
	}

	var audience []string
	if claims.RegisteredClaims.Audience != nil {
		audience = append(audience, claims.RegisteredClaims.Audience...)
	}

	issuedAt := claims.IssuedAt()
	expiresAt := claims.Expires()

	return &SessionObject{
		UserID:         claims.UserID(),
		Email:          claims.Email,
		Audience:       audience,
		Issuer:         claims.RegisteredClaims.Issuer,
		Data:           data,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}
