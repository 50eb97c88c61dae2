package sdk

import (
	"fmt"
	"net/url"
	"sync"
)

// untrustedWarningFlag is the session flag recording that the untrusted-site
// advisory was shown.
const untrustedWarningFlag = "appdock.untrustedWarningShown"

// Environment is the host page the SDK is embedded in.
type Environment interface {
	// Location returns the current page URL.
	Location() *url.URL
	// ReplaceURL rewrites the visible URL without navigating.
	ReplaceURL(u *url.URL)
	// Navigate leaves the page for rawURL.
	Navigate(rawURL string)
	// SessionFlag reads a boolean from session-scoped storage.
	SessionFlag(name string) bool
	// SetSessionFlag writes a boolean to session-scoped storage.
	SetSessionFlag(name string, value bool)
	// ShowNotice renders a dismissible advisory banner.
	ShowNotice(n Notice)
}

// NoticeKind identifies the advisory being shown.
type NoticeKind string

const NoticeUntrustedSite NoticeKind = "untrusted_site"

// Notice is an advisory the environment renders to the user.
type Notice struct {
	Kind              NoticeKind
	Host              string
	Message           string
	AccountManagerURL string
	Dismissible       bool
}

// MemoryEnvironment is an in-process Environment for tests and for hosts
// without a real page, such as command line tools.
type MemoryEnvironment struct {
	mu          sync.Mutex
	location    url.URL
	flags       map[string]bool
	notices     []Notice
	navigations []string
}

// NewMemoryEnvironment starts at rawURL.
func NewMemoryEnvironment(rawURL string) (*MemoryEnvironment, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("sdk: invalid location: %w", err)
	}
	return &MemoryEnvironment{location: *u, flags: make(map[string]bool)}, nil
}

func (m *MemoryEnvironment) Location() *url.URL {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.location
	return &u
}

func (m *MemoryEnvironment) ReplaceURL(u *url.URL) {
	if u == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.location = *u
}

func (m *MemoryEnvironment) Navigate(rawURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigations = append(m.navigations, rawURL)
}

func (m *MemoryEnvironment) SessionFlag(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags[name]
}

func (m *MemoryEnvironment) SetSessionFlag(name string, value bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[name] = value
}

func (m *MemoryEnvironment) ShowNotice(n Notice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, n)
}

// Notices returns the advisories shown so far.
func (m *MemoryEnvironment) Notices() []Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notice(nil), m.notices...)
}

// Navigations returns the URLs navigated to so far.
func (m *MemoryEnvironment) Navigations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.navigations...)
}
