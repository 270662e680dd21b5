package auth

import (
	"github.com/goliatone/go-errors"
)

const (
	// TextCodeEmailRequired flags a hook payload missing its email
	TextCodeEmailRequired = "auth_email_required"
	// TextCodeIdentityRequired flags a hook payload missing its identity id
	TextCodeIdentityRequired = "auth_identity_required"
	// TextCodeNoValidInvitation flags a sign-up without an admission ticket
	TextCodeNoValidInvitation = "auth_no_valid_invitation"
	// TextCodeAccountDeactivated flags a member whose binding was revoked
	TextCodeAccountDeactivated = "auth_account_deactivated"
	// TextCodeMalformedClaims flags a claims bag matching neither variant
	TextCodeMalformedClaims = "auth_malformed_claims"
	// TextCodeInviteConflict flags a duplicate pending invite for an email
	TextCodeInviteConflict = "auth_invite_conflict"
	// TextCodeForbidden flags an operation outside the caller's authority
	TextCodeForbidden = "auth_forbidden"
)

// ErrEmailRequired is returned when a hook payload carries no email.
// The platform should never send one, so this is a fatal input error.
var ErrEmailRequired = errors.New("email is required", errors.CategoryBadInput).
	WithTextCode(TextCodeEmailRequired).
	WithCode(errors.CodeBadRequest)

// ErrIdentityRequired is returned when a sign-in hook payload carries no
// identity id.
var ErrIdentityRequired = errors.New("identity id is required", errors.CategoryBadInput).
	WithTextCode(TextCodeIdentityRequired).
	WithCode(errors.CodeBadRequest)

// ErrNoValidInvitation rejects a sign-up for an email with no pending,
// unexpired invite. The message is user visible and must stay distinct from
// the deactivation message.
var ErrNoValidInvitation = errors.New("no valid invitation found for this email", errors.CategoryAuth).
	WithTextCode(TextCodeNoValidInvitation).
	WithCode(errors.CodeForbidden)

// ErrAccountDeactivated rejects a sign-in for a member whose record exists
// but no longer carries a usable role or org binding.
var ErrAccountDeactivated = errors.New("account has been deactivated; contact an administrator", errors.CategoryAuth).
	WithTextCode(TextCodeAccountDeactivated).
	WithCode(errors.CodeForbidden)

// ErrMalformedClaims is returned when a claims bag matches neither the super
// admin nor the member variant.
var ErrMalformedClaims = errors.New("malformed claims payload", errors.CategoryBadInput).
	WithTextCode(TextCodeMalformedClaims).
	WithCode(errors.CodeBadRequest)

// ErrInviteConflict is returned when an email already has a pending,
// unexpired invite.
var ErrInviteConflict = errors.New("a pending invitation already exists for this email", errors.CategoryConflict).
	WithTextCode(TextCodeInviteConflict).
	WithCode(errors.CodeConflict)

// ErrForbidden is returned when the acting principal lacks the authority an
// admin operation requires.
var ErrForbidden = errors.New("operation not permitted for this role", errors.CategoryAuth).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrTokenExpired is returned for expired session credentials.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode("auth_token_expired").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for credentials that fail verification for
// any reason other than expiry.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode("auth_token_malformed").
	WithCode(errors.CodeUnauthorized)

// IsAuthRejection reports whether err is one of the deliberate authorization
// gates (no invitation, deactivated, forbidden) as opposed to an incidental
// failure. Hook transports use this to pick the rejection encoding.
func IsAuthRejection(err error) bool {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.Category == errors.CategoryAuth
}

// IsInputError reports whether err is a fatal bad-input error.
func IsInputError(err error) bool {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	return rich.Category == errors.CategoryBadInput
}

// RejectionTextCode extracts the stable text code from a rejection so user
// facing surfaces can distinguish "not invited" from "deactivated" without
// string matching.
func RejectionTextCode(err error) string {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return ""
	}
	return rich.TextCode
}

// IsDeactivated will check for the deactivation rejection
func IsDeactivated(err error) bool {
	return RejectionTextCode(err) == TextCodeAccountDeactivated
}

// IsNotInvited will check for the missing-invitation rejection
func IsNotInvited(err error) bool {
	return RejectionTextCode(err) == TextCodeNoValidInvitation
}
