package sdk

import (
	"regexp"
	"strings"
)

var simpleFieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z_0-9]*$`)

// quoteFieldPath renders a top-level key as an update mask field path.
// Keys that are not simple identifiers are wrapped in backticks, with
// backslashes and backticks escaped.
func quoteFieldPath(key string) string {
	if simpleFieldName.MatchString(key) {
		return key
	}
	escaped := strings.NewReplacer(`\`, `\\`, "`", "\\`").Replace(key)
	return "`" + escaped + "`"
}
