package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize prepares a free-text identity field for use as a registry query
// key. The downstream registries reject non-ASCII input, so accents are
// decomposed and stripped and any remaining non-ASCII runes are dropped.
// Interior whitespace collapses to single spaces.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		// Transform failures leave the input intact; the ASCII filter below
		// still applies.
		out = s
	}

	var b strings.Builder
	b.Grow(len(out))
	for _, r := range out {
		if r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
