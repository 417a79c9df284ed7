package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/cabinet-be/internal/apperr"
)

// Hasher hashes and verifies credentials.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

// BcryptHasher is the production Hasher.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using bcrypt.DefaultCost.
func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{Cost: bcrypt.DefaultCost}
}

// Hash reports passwords bcrypt cannot accept as a validation error on the
// password field.
func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.Invalid("password", "must be at most 72 bytes")
	}
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare returns ErrPasswordMismatch when plain does not match hash.
func (h BcryptHasher) Compare(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// ErrPasswordMismatch indicates the supplied password does not match the stored hash.
var ErrPasswordMismatch = errors.New("password mismatch")
