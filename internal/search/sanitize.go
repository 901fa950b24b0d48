package search

import "strings"

// Characters the Lucene full-text query parser treats as operators.
// Natural-language punctuation must not reach the parser, and a failed
// query is worse than slightly degraded recall, so reserved characters
// are replaced rather than escaped.
const reservedChars = `+-!(){}[]^"~*?:\/`

// Sanitize neutralizes full-text query syntax in free text and collapses
// the resulting whitespace. An empty return value means retrieval should
// be skipped entirely.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(reservedChars, r) {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
