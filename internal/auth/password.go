package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// AdminAuthenticator checks a single operator account configured with a
// bcrypt hash. With no hash configured every attempt fails.
type AdminAuthenticator struct {
	username     string
	passwordHash []byte
}

// NewAdminAuthenticator creates an authenticator for username whose
// password hashes to passwordHash.
func NewAdminAuthenticator(username, passwordHash string) *AdminAuthenticator {
	return &AdminAuthenticator{
		username:     username,
		passwordHash: []byte(passwordHash),
	}
}

// Authenticate verifies the username and password, returning an admin
// principal if valid.
func (a *AdminAuthenticator) Authenticate(_ context.Context, username, credential string) (*Principal, error) {
	if len(a.passwordHash) == 0 {
		return nil, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) != 1 {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Principal{Subject: a.username, Role: RoleAdmin}, nil
}

// HashPassword returns the bcrypt hash to configure as ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
