// Package routes provides shared route constants used by the SDK to derive
// endpoint URLs from a base URL and by the test backend to serve them.
package routes

// API route paths - these constants are shared between the SDK and the fake
// backend in testutil to prevent path mismatches.
const (
	// TrustedSites returns the trusted hosting domains and the official account
	// manager URL.
	TrustedSites = "/trusted-sites.json"

	// AccountsLookup resolves the profile (display name, photo) behind an ID token.
	AccountsLookup = "/accounts/lookup"

	// UserAppDocument is the per-user, per-application data document.
	UserAppDocument = "/users/{uid}/apps/{app_id}"

	// Login is the hosted sign-in page.
	Login = "/login"

	// AccountManager is the hosted account management page.
	AccountManager = "/account"
)
