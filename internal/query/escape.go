package query

import "strings"

// Characters with meaning in the Lucene query syntax.
const specialChars = `\+-&|!(){}[]^"~*?:/`

// EscapeTerm backslash-escapes query syntax characters so the token is
// matched literally.
func EscapeTerm(term string) string {
	if !strings.ContainsAny(term, specialChars) {
		return term
	}
	var b strings.Builder
	b.Grow(len(term) * 2)
	for _, r := range term {
		if strings.ContainsRune(specialChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// quotePhrase wraps value in double quotes. The value is not escaped.
func quotePhrase(value string) string {
	return `"` + value + `"`
}
