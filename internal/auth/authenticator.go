// Package auth checks admin credentials and guards the editorial dashboard.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no valid session")
)

// Authenticator is the credential-checking collaborator.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context, email string) error
}

// PasswordAuthenticator accepts a single configured admin account whose
// password is stored as a bcrypt hash.
type PasswordAuthenticator struct {
	email string
	hash  []byte
}

func NewPasswordAuthenticator(email, passwordHash string) (*PasswordAuthenticator, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errors.New("admin email is empty")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	return &PasswordAuthenticator{
		email: strings.ToLower(strings.TrimSpace(email)),
		hash:  []byte(passwordHash),
	}, nil
}

func (a *PasswordAuthenticator) SignIn(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.email)) == 1
	// Compare the hash even for an unknown email so both paths cost the same.
	pwErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !emailOK || pwErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// SignOut has nothing to revoke for a config-based account.
func (a *PasswordAuthenticator) SignOut(ctx context.Context, email string) error {
	return nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
