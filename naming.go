package jbst

import (
	"path"
	"regexp"
	"strings"
	"unicode"
)

// defaultTemplateName names templates compiled without a file path.
const defaultTemplateName = "_template"

var reIdentifierPath = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)

// defaultName derives a template name from the file's base name, prefixed by
// the namespace: "A/B/C.jbst" in namespace "NS" gives "NS.C".
func defaultName(filePath, namespace string) string {
	base := path.Base(strings.ReplaceAll(filePath, `\`, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if filePath == "" || base == "" || base == "." || base == "/" || base == "~" {
		base = defaultTemplateName
	}
	name := sanitizeIdentifier(base)
	if ns := sanitizeName(namespace); ns != "" {
		return ns + "." + name
	}
	return name
}

// sanitizeName cleans every segment of a dotted name.
func sanitizeName(name string) string {
	var segments []string
	for _, s := range strings.Split(strings.TrimSpace(name), ".") {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, sanitizeIdentifier(s))
		}
	}
	return strings.Join(segments, ".")
}

// sanitizeIdentifier replaces characters invalid in a JavaScript identifier
// with '_' and prefixes a leading digit.
func sanitizeIdentifier(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteByte('_')
			}
		default:
			r = '_'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isIdentifierPath reports whether s is a plain dotted identifier such as
// "Foo.Bar", as opposed to an arbitrary expression.
func isIdentifierPath(s string) bool {
	return reIdentifierPath.MatchString(s)
}
