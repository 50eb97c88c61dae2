package sdk

import "sync"

// Session holds the sealed identity and the bearer token it came from. It is
// written by bootstrap and sign-out only.
type Session struct {
	mu       sync.RWMutex
	identity Identity
	token    string
	sealed   bool
}

// NewSession returns an unauthenticated session.
func NewSession() *Session {
	return &Session{}
}

func (s *Session) seal(id Identity, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
	s.token = token
	s.sealed = true
}

// Current returns a copy of the sealed identity.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.sealed {
		return Identity{}, false
	}
	return s.identity, true
}

// Authenticated reports whether a sealed identity exists.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// Clear drops the identity and token. The token is not revoked server-side.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = Identity{}
	s.token = ""
	s.sealed = false
}

func (s *Session) credentials() (Identity, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.token, s.sealed
}
