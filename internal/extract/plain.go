package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain keeps text as-is. Invalid UTF-8 becomes U+FFFD so chunk boundaries stay on runes.
func extractPlain(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	return strings.ToValidUTF8(string(content), "\ufffd"), nil
}
