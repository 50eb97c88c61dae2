// Package auth decodes session bearer tokens and resolves the profile behind
// them. Tokens are never verified here; signature and expiry checks belong to
// the servers that accept them.
package auth

import "github.com/golang-jwt/jwt/v5"

// Claims encodes the JWT claims read from a session bearer token.
//
// This is a DTO matching the identity provider's ID token contract.
type Claims struct {
	// UserID is the provider's legacy copy of the subject.
	UserID        string `json:"user_id,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`

	jwt.RegisteredClaims
}

// UID returns the subject, falling back to user_id.
func (c Claims) UID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}
