package auth

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// HashSecurityAnswer hashes a security answer with the same function used for
// passwords, normalized so comparisons are case and whitespace insensitive.
func HashSecurityAnswer(answer string) (string, error) {
	return HashPassword(normalizeSecurityAnswer(answer))
}

// CompareSecurityAnswer validates a security answer against its enrollment
// hash. bcrypt's comparison runs in constant relative time, so the check does
// not leak answer length through timing.
func CompareSecurityAnswer(answer, hash string) error {
	return ComparePasswordAndHash(normalizeSecurityAnswer(answer), hash)
}

// RandomPassword generates a temporary password for admin-created accounts.
// The recipient resets it through the welcome link before first login.
func RandomPassword() string {
	pwd := uuid.NewString()
	if len(pwd) > TempPasswordLength {
		pwd = pwd[:TempPasswordLength]
	}
	return pwd
}

func normalizeSecurityAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
