package sdk

import "regexp"

// AppID names an application's namespace in the document store.
type AppID string

var appIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateAppID accepts ids made only of letters, digits, '.', '_' and '-'.
// Anything else is rejected, never sanitised. "." and ".." are reserved path
// segments and rejected as well.
func ValidateAppID(raw string) (AppID, error) {
	switch {
	case raw == "":
		return "", &ConfigurationError{Field: "application id", Reason: "required"}
	case !appIDPattern.MatchString(raw):
		return "", &ConfigurationError{Field: "application id", Reason: "only letters, digits, '.', '_' and '-' are allowed"}
	case raw == "." || raw == "..":
		return "", &ConfigurationError{Field: "application id", Reason: "reserved name"}
	}
	return AppID(raw), nil
}
