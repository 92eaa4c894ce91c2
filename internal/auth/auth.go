// Package auth implements the single-account admin login: argon2id password
// hashes and short-lived HS256 session tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Credentials is the configured admin account.
type Credentials struct {
	Username     string
	PasswordHash string
}

// NewCredentials builds the admin account from either a plaintext password
// (hashed here) or an existing argon2id hash. The hash wins when both are set.
func NewCredentials(username, password, passwordHash string) (Credentials, error) {
	if username == "" {
		return Credentials{}, fmt.Errorf("admin username: %w", ErrMissingCredentials)
	}
	if passwordHash == "" {
		if password == "" {
			return Credentials{}, fmt.Errorf("admin password: %w", ErrMissingCredentials)
		}
		h, err := HashPassword(password)
		if err != nil {
			return Credentials{}, fmt.Errorf("hash admin password: %w", err)
		}
		passwordHash = h
	}
	if _, err := decodeHash(passwordHash); err != nil {
		return Credentials{}, fmt.Errorf("admin password hash: %w", err)
	}
	return Credentials{Username: username, PasswordHash: passwordHash}, nil
}

func (c Credentials) Authenticate(username, password string) error {
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	// Always run the hash so a wrong username costs the same as a wrong password.
	passOK, err := ComparePassword(password, c.PasswordHash)
	if err != nil {
		return err
	}
	if !userOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}
