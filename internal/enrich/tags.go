package enrich

import "strings"

// Categories is the fixed tag vocabulary for local classification.
var Categories = []string{
	"portrait",
	"factory",
	"contract",
	"interview",
	"sports",
	"urban development",
	"public works",
	"advertisement",
}

// tagKeywords maps each category to the substrings that trigger it.
var tagKeywords = map[string][]string{
	"portrait":          {"portrait"},
	"factory":           {"factory", "industry", "industrial"},
	"contract":          {"contract", "agreement"},
	"interview":         {"interview"},
	"sports":            {"sport", "stadium", "championship"},
	"urban development": {"market", "urban"},
	"public works":      {"public works", "aqueduct", "railway"},
	"advertisement":     {"advertisement", "poster"},
}

// ClassifyTags assigns categories to text by keyword matching. It is
// the local stand-in for model-based tagging: coarse, deterministic,
// and cheap. Always returns a non-nil slice.
func ClassifyTags(text string) []string {
	lower := strings.ToLower(text)
	tags := []string{}
	for _, category := range Categories {
		for _, kw := range tagKeywords[category] {
			if strings.Contains(lower, kw) {
				tags = append(tags, category)
				break
			}
		}
	}
	return tags
}
