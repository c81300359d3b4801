package jbst

import (
	"regexp"

	"github.com/dangdungcntt/go-jbst/markup"
)

// Equivalent to \s with \u00a0 (non-breaking space) excluded
const wsChars = " \f\n\r\t\v\u1680\u180e\u2000-\u200a\u2028\u2029\u202f\u205f\u3000\ufeff"

var (
	wsRunRegexp = regexp.MustCompile(`[` + wsChars + `]+`)
	blankRegexp = regexp.MustCompile(`^[` + wsChars + `]*$`)
)

// preserveWsTags keep their text as written.
var preserveWsTags = map[string]bool{
	"pre":      true,
	"textarea": true,
	"script":   true,
	"style":    true,
}

// NormalizeWhitespace collapses every run of whitespace to a single space.
func NormalizeWhitespace(s string) string {
	return wsRunRegexp.ReplaceAllString(s, " ")
}

// normalizeText returns tok unchanged unless collapsing its text changes it.
func normalizeText(tok markup.Token) markup.Token {
	s, ok := tok.Value.(string)
	if !ok {
		return tok
	}
	if n := NormalizeWhitespace(s); n != s {
		return markup.PrimitiveToken(n)
	}
	return tok
}

func isBlank(s string) bool {
	return blankRegexp.MatchString(s)
}

func preservesWhitespace(open []string) bool {
	for _, name := range open {
		if preserveWsTags[name] {
			return true
		}
	}
	return false
}

// trimRootWhitespace drops blank text at the root level of a unit.
func trimRootWhitespace(tokens []markup.Token) []markup.Token {
	out := tokens[:0:0]
	depth := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case markup.ElementStart:
			depth++
		case markup.ElementEnd:
			depth--
		case markup.Primitive:
			if s, ok := tok.Value.(string); ok && depth == 0 && isBlank(s) {
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}
