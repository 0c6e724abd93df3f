// Package auth holds the credential primitives shared by the self-hosted
// backends: password hashing, opaque session tokens and session issuance.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tracker/internal/core"
)

const (
	// DefaultSessionTTL is used when no TTL is configured.
	DefaultSessionTTL = time.Hour
	// TokenType is the token_type reported on issued sessions.
	TokenType = "bearer"
	// MinPasswordLength matches the signup rule enforced by the HTTP layer.
	MinPasswordLength = 6
)

// Messages returned to callers on rejected credentials.
const (
	InvalidCredentialsMessage = "Invalid login credentials"
	EmailTakenMessage         = "User already registered"
	PasswordTooLongMessage    = "Password cannot be longer than 72 bytes"
)

// BcryptCost is the work factor for new hashes. Tests lower it.
var BcryptCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of password. Passwords bcrypt cannot
// hash in full are rejected with an AuthError.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", &core.AuthError{Message: PasswordTooLongMessage, Err: err}
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateSessionToken returns 32 random bytes hex encoded.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NormalizeEmail lowercases and trims email for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewSession issues a session for user valid for ttl from now. A zero ttl
// selects DefaultSessionTTL.
func NewSession(user *core.User, ttl time.Duration, now time.Time) (*core.Session, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	access, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	refresh, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	return &core.Session{
		AccessToken:  access,
		TokenType:    TokenType,
		ExpiresIn:    int64(ttl.Seconds()),
		ExpiresAt:    now.Add(ttl).Unix(),
		RefreshToken: refresh,
		User:         user,
	}, nil
}

// InvalidCredentials is the error returned for an unknown email or a wrong
// password. The two cases are indistinguishable to the caller.
func InvalidCredentials() error {
	return &core.AuthError{Message: InvalidCredentialsMessage, Err: core.ErrInvalidCredentials}
}

// EmailTaken is the error returned when signing up with a registered email.
func EmailTaken() error {
	return &core.AuthError{Message: EmailTakenMessage, Err: core.ErrEmailTaken}
}
