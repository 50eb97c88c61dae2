package sdk

import (
	"encoding/json"

	"github.com/appdock/appdock/sdk/go/auth"
)

// Identity is the sealed snapshot of the signed-in user. Its fields are only
// reachable through accessors, and it is handed out by value, so embedding
// code can never change the session's copy.
type Identity struct {
	uid           string
	email         string
	emailVerified bool
	displayName   string
	photoURL      string
}

func identityFromClaims(claims auth.Claims) Identity {
	return Identity{
		uid:           claims.UID(),
		email:         claims.Email,
		emailVerified: claims.EmailVerified,
	}
}

func (i Identity) withProfile(p auth.Profile) Identity {
	i.displayName = p.DisplayName
	i.photoURL = p.PhotoURL
	if p.EmailVerified != nil {
		i.emailVerified = *p.EmailVerified
	}
	return i
}

// UID is the opaque user id.
func (i Identity) UID() string { return i.uid }

func (i Identity) Email() string { return i.email }

func (i Identity) EmailVerified() bool { return i.emailVerified }

// DisplayName reports the profile name, absent when enrichment failed or the
// account has none.
func (i Identity) DisplayName() (string, bool) { return i.displayName, i.displayName != "" }

// PhotoURL reports the avatar URL, absent when enrichment failed or the
// account has none.
func (i Identity) PhotoURL() (string, bool) { return i.photoURL, i.photoURL != "" }

// IsZero reports whether i is the empty identity.
func (i Identity) IsZero() bool { return i.uid == "" }

type identityJSON struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName,omitempty"`
	PhotoURL      string `json:"photoURL,omitempty"`
}

// MarshalJSON renders the identity for UI code.
func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(identityJSON{
		UID:           i.uid,
		Email:         i.email,
		EmailVerified: i.emailVerified,
		DisplayName:   i.displayName,
		PhotoURL:      i.photoURL,
	})
}
