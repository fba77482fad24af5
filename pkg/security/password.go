package security

import (
	"errors"

	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultHashCost raises bcrypt's own default for credential storage.
	DefaultHashCost = 12

	// MaxPasswordLength bounds hashing work for absurdly long inputs.
	MaxPasswordLength = 128

	// minPasswordEntropyBits is the strength floor for new credentials.
	minPasswordEntropyBits = 60
)

// HashPassword produces the bcrypt hash stored for a user credential.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password cannot be empty")
	}
	if len(password) > MaxPasswordLength {
		return "", errors.New("password too long")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a stored hash with a plaintext candidate using
// bcrypt's constant-time comparison.
func VerifyPassword(hashedPassword, password string) error {
	if len(hashedPassword) == 0 || len(password) == 0 {
		return errors.New("password cannot be empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePasswordStrength rejects low-entropy credentials at registration.
func ValidatePasswordStrength(password string) error {
	return passwordvalidator.Validate(password, minPasswordEntropyBits)
}
