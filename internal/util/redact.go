package util

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (JWTs and opaque tokens). Keep it broad:
	// tokens show up in error strings via provider SDKs and HTTP responses.
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Common key=value formats that sometimes leak from provider and
	// registry clients.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|gemini[_-]?api[_-]?key|registry[_-]?token)\b\s*[:=]\s*[^\s"']+`)

	// Keys passed as URL query parameters.
	keyParamRe = regexp.MustCompile(`(?i)\b(key|token|apikey)=[^\s&"']+`)
)

// RedactSecrets removes obvious secret-bearing substrings from error/log
// strings before they reach run records or logs.
//
// This is intentionally conservative: it should be safe to call on any
// message, including upstream error strings.
func RedactSecrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	out = keyParamRe.ReplaceAllString(out, "$1=<redacted>")
	return strings.TrimSpace(out)
}
