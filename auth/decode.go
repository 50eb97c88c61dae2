package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is wrapped by every DecodeUnverified failure.
var ErrMalformedToken = errors.New("auth: malformed bearer token")

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// DecodeUnverified extracts the claims payload of a three-segment bearer
// token. The header and signature segments are not inspected.
func DecodeUnverified(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}
	payload, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: payload is not base64url: %v", ErrMalformedToken, err)
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: payload is not a JSON object: %v", ErrMalformedToken, err)
	}
	if claims.UID() == "" {
		return Claims{}, fmt.Errorf("%w: payload has no subject", ErrMalformedToken)
	}
	return claims, nil
}

// IsJWTLike reports whether token has the three dot-separated segments of a
// JWT.
func IsJWTLike(token string) bool {
	t := strings.TrimSpace(token)
	if t == "" {
		return false
	}
	return strings.Count(t, ".") == 2
}
