package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy strips every tag and attribute. It is safe for concurrent use.
var strictPolicy = bluemonday.StrictPolicy()

// maxSanitizePasses bounds the decode loop for deeply nested entity encoding.
const maxSanitizePasses = 8

// SanitizeText removes any markup from user-supplied text and trims it.
// Values are stored as plain text, so entities are decoded, and the result is
// sanitized again until decoding no longer produces new markup.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}
	for i := 0; i < maxSanitizePasses; i++ {
		decoded := html.UnescapeString(strictPolicy.Sanitize(s))
		if decoded == s {
			return strings.TrimSpace(decoded)
		}
		s = decoded
	}
	// still unstable: keep the escaped form
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}
