package sdk

import (
	"net/url"
	"strings"
)

const tokenParam = "token"

// ExtractToken finds the token parameter in a URL fragment (with or without
// the leading '#'). The token runs up to the next '&' or the end of the
// fragment. ok is true whenever the parameter is present, even if empty.
func ExtractToken(fragment string) (token string, ok bool) {
	fragment = strings.TrimPrefix(fragment, "#")
	for _, part := range strings.Split(fragment, "&") {
		raw, found := strings.CutPrefix(part, tokenParam+"=")
		if !found {
			continue
		}
		if unescaped, err := url.PathUnescape(raw); err == nil {
			raw = unescaped
		}
		return strings.TrimSpace(raw), true
	}
	return "", false
}

// scrubbedURL drops the fragment and every query parameter so the consumed
// token cannot be re-shared or replayed by a reload.
func scrubbedURL(u *url.URL) *url.URL {
	clean := *u
	clean.Fragment = ""
	clean.RawFragment = ""
	clean.RawQuery = ""
	clean.ForceQuery = false
	return &clean
}
