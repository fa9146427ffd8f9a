package ingest

import (
	"regexp"
	"strings"
)

// textFields is the ordered list of candidate text-bearing field names.
// Values are concatenated in this order; earlier fields are the more
// curated ones upstream, so they lead.
var textFields = []string{
	"cleaned_text",
	"extracted_text",
	"caption",
	"detailed_description",
	"summary",
	"description",
}

// ExtractText scans the candidate fields and concatenates every value
// that is present, a string, and non-empty after trimming, joined by
// single spaces. An empty return means the document carries no usable
// text and should be skipped.
func ExtractText(fields map[string]any) string {
	var parts []string
	for _, key := range textFields {
		v, ok := fields[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize collapses every maximal whitespace run (spaces, tabs,
// newlines) into a single space and trims the ends. Idempotent.
func Normalize(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
