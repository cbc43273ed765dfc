package prompt

import (
	"strings"
	"unicode"
)

// Synthesize renders a structured prompt as readable text: one
// "key: value" fragment per non-empty key in insertion order, joined
// with ". " and closed with a period. Nested values degrade to their
// serialized form, which the parser keeps as an opaque scalar.
func Synthesize(s *Structured) string {
	if s == nil || s.Len() == 0 {
		return ""
	}

	parts := make([]string, 0, s.Len())
	for _, key := range s.keys {
		v := s.values[key]
		if v.Empty() {
			continue
		}

		var rendered string
		switch v.Kind() {
		case KindScalar:
			rendered = v.scalar
		case KindSequence:
			rendered = strings.Join(v.seq, ", ")
		case KindNested:
			rendered = v.nested.Encode()
		}

		parts = append(parts, formatKey(key)+": "+rendered)
	}

	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ". ") + "."
}

// formatKey turns a camel-case key into readable words:
// "aspectRatio" -> "aspect ratio".
func formatKey(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for i, r := range key {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
