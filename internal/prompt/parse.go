package prompt

import (
	"regexp"
	"strings"
	"unicode"
)

var labelValuePattern = regexp.MustCompile(`^([^:]+):\s*(.+)$`)

// Parse maps edited prompt text back onto a structured prompt. It starts
// from a copy of previous, so keys absent from the text survive. The text
// is split into segments on "." and ";"; each "label: value" segment sets
// the camel-cased key, with comma-separated values (containing no "{")
// becoming sequences. Segments without a label are ignored. Parse never
// fails: fully unparseable text returns previous unchanged.
func Parse(text string, previous *Structured) *Structured {
	out := previous.Clone()

	for _, segment := range splitSegments(text) {
		m := labelValuePattern.FindStringSubmatch(segment)
		if m == nil {
			continue
		}

		key := camelKey(strings.TrimSpace(m[1]))
		if key == "" {
			continue
		}
		value := strings.TrimSpace(m[2])

		if strings.Contains(value, ",") && !strings.Contains(value, "{") {
			var items []string
			for _, item := range strings.Split(value, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			out.Set(key, Sequence(items...))
			continue
		}
		out.Set(key, Scalar(value))
	}

	return out
}

// splitSegments cuts on "." and ";" only. Commas are kept inside segments
// so a synthesized sequence ("colors: red, blue") parses back to the same
// sequence instead of shearing off everything after the first comma.
func splitSegments(text string) []string {
	var out []string
	for _, seg := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == ';'
	}) {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// camelKey converts a spaced label into a camel-case key:
// "aspect ratio" -> "aspectRatio".
func camelKey(label string) string {
	words := strings.Fields(label)
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		runes := []rune(w)
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(string(runes[1:]))
	}
	return b.String()
}
