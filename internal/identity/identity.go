// Package identity derives the anonymized student key used against the
// CosmicDS backend from the user info handed over by the auth provider.
package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
)

var (
	ErrNotAuthenticated = errors.New("user not authenticated")
	ErrNoIdentity       = errors.New("no authentication information")
)

// UserInfo is the subset of the auth provider's userinfo the hash is built from.
type UserInfo struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Resolver hashes user info with a deployment secret.
type Resolver struct {
	secret string
}

func NewResolver(secret string) *Resolver {
	return &Resolver{secret: secret}
}

// Resolve returns the hex SHA-1 of the user's email (or name when no email is
// known) concatenated with the secret. SHA-1 matches the keys of records that
// already exist in the backend, so it cannot be swapped for another digest.
func (r *Resolver) Resolve(user *UserInfo) (string, error) {
	if user == nil {
		return "", ErrNotAuthenticated
	}
	ref := user.Email
	if ref == "" {
		ref = user.Name
	}
	if ref == "" {
		return "", ErrNoIdentity
	}
	sum := sha1.Sum([]byte(ref + r.secret))
	return hex.EncodeToString(sum[:]), nil
}

// SignUpEmail is the synthetic email registered for a hashed user. The backend
// requires an email field but must never see the real one.
func SignUpEmail(hashed string) string {
	return hashed
}
