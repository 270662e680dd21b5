package auth

import (
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MemberRole is the organization-scoped role carried by a membership.
type MemberRole = string

const (
	// RoleViewer can read organization resources
	RoleViewer MemberRole = "viewer"
	// RoleUser can read and edit organization resources
	RoleUser MemberRole = "user"
	// RoleAdmin can manage members and invites for their organization
	RoleAdmin MemberRole = "admin"
	// RoleSuperAdmin is the sentinel stored on the single platform operator
	// record. It is never a valid invite role; authority is carried by the
	// super admin claims variant instead.
	RoleSuperAdmin MemberRole = "superadmin"
)

// InviteStatus is the stored lifecycle state of an invitation. Expiry is
// time-based and derived from ExpiresAt, not stored.
type InviteStatus = string

const (
	// InviteStatusPending means the invite can still gate an account creation
	InviteStatusPending InviteStatus = "pending"
	// InviteStatusAccepted means the invite was consumed by materialization
	InviteStatusAccepted InviteStatus = "accepted"
)

// User is the durable membership record for an identity. The row exists only
// after the identity provider durably created the account; it is keyed by a
// deterministic UUID derived from the provider uid so repeated
// materialization attempts for the same identity always land on the same row.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	ProviderUID   string     `bun:"provider_uid,notnull,unique" json:"provider_uid,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName   string     `bun:"display_name" json:"display_name,omitempty"`
	PhotoURL      string     `bun:"photo_url" json:"photo_url,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	OrgID         *uuid.UUID `bun:"org_id,type:uuid" json:"org_id,omitempty"`
	Role          MemberRole `bun:"member_role" json:"member_role,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserIDFromProviderUID derives the record key for an identity provider uid.
// The derivation is deterministic: the same uid always maps to the same row.
func UserIDFromProviderUID(uid string) (uuid.UUID, error) {
	return hashid.NewUUID(uid)
}

// IsSuperAdmin reports whether this record is the operator sentinel.
func (u *User) IsSuperAdmin() bool {
	return u != nil && u.Role == RoleSuperAdmin
}

// HasMembership reports whether the record carries a usable role and org
// binding. A record that exists but fails this check is an administratively
// deactivated member; this is distinct from the record not existing at all.
func (u *User) HasMembership() bool {
	if u == nil {
		return false
	}
	if u.IsSuperAdmin() {
		return true
	}
	return u.Role != "" && u.OrgID != nil && *u.OrgID != uuid.Nil
}

// Invite is a single-use admission ticket for an email address. At most one
// pending, unexpired invite may exist per email; CreateInviteHandler enforces
// that at creation time and the hooks consume it as a precondition.
type Invite struct {
	bun.BaseModel `bun:"table:invites,alias:inv"`
	ID            uuid.UUID    `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Email         string       `bun:"email,notnull" json:"email,omitempty"`
	OrgID         uuid.UUID    `bun:"org_id,notnull,type:uuid" json:"org_id,omitempty"`
	Role          MemberRole   `bun:"member_role,notnull" json:"member_role,omitempty"`
	Phone         string       `bun:"phone_number" json:"phone_number,omitempty"`
	InvitedBy     uuid.UUID    `bun:"invited_by,notnull,type:uuid" json:"invited_by,omitempty"`
	Status        InviteStatus `bun:"status,notnull" json:"status,omitempty"`
	TokenHash     string       `bun:"token_hash,notnull" json:"-"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	ExpiresAt     time.Time    `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	AcceptedAt    *time.Time   `bun:"accepted_at,nullzero" json:"accepted_at,omitempty"`
}

// IsExpired reports whether the invite's clock has run out relative to now.
func (i *Invite) IsExpired(now time.Time) bool {
	return i != nil && !i.ExpiresAt.After(now)
}

// IsConsumable reports whether the invite can still gate an account creation.
func (i *Invite) IsConsumable(now time.Time) bool {
	return i != nil && i.Status == InviteStatusPending && !i.IsExpired(now)
}

// Organization is a tenant. MemberCount is adjusted only inside the same
// atomic batch that creates a membership record, never recomputed by scan.
type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:org"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Slug          string     `bun:"slug,notnull,unique" json:"slug,omitempty"`
	CreatedBy     uuid.UUID  `bun:"created_by,notnull,type:uuid" json:"created_by,omitempty"`
	MemberCount   int        `bun:"member_count,notnull,default:0" json:"member_count"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
