package auth

import (
	stderrors "errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrNoEmptyString is returned when an empty value is offered for hashing.
var ErrNoEmptyString = stderrors.New("value should not be an empty string")

// ErrTokenMismatch is returned when a presented invite token does not match
// the stored hash.
var ErrTokenMismatch = stderrors.New("invite token does not match")

// inviteTokenCost is lower than an interactive password cost; tokens are
// 128-bit random values, not human-chosen secrets.
const inviteTokenCost = 10

// NewInviteToken generates a random delivery token for an invite. Only the
// hash is persisted; the raw value travels once, in the delivery channel.
func NewInviteToken() string {
	return uuid.NewString()
}

// HashInviteToken will generate a hash for storing a delivery token at rest
func HashInviteToken(token string) (string, error) {
	if token == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(token), inviteTokenCost)
	return string(h), err
}

// CompareInviteTokenAndHash will validate the given raw token against the
// stored hash
func CompareInviteTokenAndHash(token, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		if stderrors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrTokenMismatch
		}
		return err
	}
	return nil
}
