package auth

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// HouseholdSubject is the subject of every session opened with the household passphrase.
const HouseholdSubject = "household"

// MinPassphraseLength is the shortest passphrase HashPassphrase accepts.
const MinPassphraseLength = 8

var (
	ErrInvalidPassphrase = errors.New("invalid passphrase")
	ErrWeakPassphrase    = errors.New("passphrase must be at least 8 characters")
	ErrInvalidHash       = errors.New("passphrase hash is not a bcrypt hash")
)

// HashPassphrase returns the bcrypt hash to put in the configuration.
func HashPassphrase(passphrase string) (string, error) {
	if err := ValidatePassphrase(passphrase); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash passphrase: %w", err)
	}
	return string(hash), nil
}

// ValidatePassphrase checks that the passphrase meets minimum requirements.
func ValidatePassphrase(passphrase string) error {
	if utf8.RuneCountInString(passphrase) < MinPassphraseLength {
		return ErrWeakPassphrase
	}
	return nil
}

// PassphraseAuthenticator checks the household passphrase against its bcrypt hash.
type PassphraseAuthenticator struct {
	hash []byte
}

// NewPassphraseAuthenticator creates an authenticator for the given bcrypt hash.
func NewPassphraseAuthenticator(hash string) (*PassphraseAuthenticator, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, ErrInvalidHash
	}
	return &PassphraseAuthenticator{hash: []byte(hash)}, nil
}

// Authenticate verifies the passphrase.
func (a *PassphraseAuthenticator) Authenticate(_ context.Context, passphrase string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(passphrase)); err != nil {
		return "", ErrInvalidPassphrase
	}
	return HouseholdSubject, nil
}
