package ai

import (
	"strings" // String helpers

	"github.com/tidwall/gjson" // JSON path queries
)

// ExtractJSON pulls the JSON document out of a model answer.
// Markdown fences and prose around the document are dropped; "" means nothing valid was found.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)

	// Strip a markdown fence
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.Index(rest, "\n"); nl >= 0 {
			rest = rest[nl+1:] // drop the fence language tag
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}
	if gjson.Valid(s) && (strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")) {
		return s // Whole answer is JSON
	}

	// Otherwise cut the outermost document out of the prose
	pairs := [][2]string{{"{", "}"}, {"[", "]"}}
	if a, o := strings.Index(s, "["), strings.Index(s, "{"); a >= 0 && (o < 0 || a < o) {
		pairs[0], pairs[1] = pairs[1], pairs[0] // the outermost document opens first
	}
	for _, pair := range pairs {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start >= 0 && end > start {
			candidate := s[start : end+1]
			if gjson.Valid(candidate) {
				return candidate
			}
		}
	}
	return ""
}
