package enrich

import (
	"regexp"
	"strings"

	"github.com/tesseralab/tessera/internal/document"
)

// The fallback extractor classifies capitalized word spans with surface
// heuristics. It is deliberately conservative: a lone capitalized word
// with no classifying signal is dropped rather than guessed, since
// downstream linking treats every entity as a match key.

// capSpanRE matches a run of capitalized words, allowing lowercase
// connectors common in organization and place names. Periods are span
// breakers, so sentence boundaries never glue two names together;
// abbreviated titles ("Dr.") are picked up as the preceding word
// instead.
var capSpanRE = regexp.MustCompile(`[A-ZÀ-Þ][\pL\pN'&-]*(?:\s+(?:of|di|del|della|da|de|van|von)\s+[A-ZÀ-Þ][\pL\pN'&-]*|\s+[A-ZÀ-Þ][\pL\pN'&-]*)*`)

var orgMarkers = map[string]bool{
	"inc": true, "ltd": true, "corp": true, "corporation": true,
	"company": true, "co": true, "società": true,
	"university": true, "institute": true, "ministry": true, "bank": true,
	"club": true, "committee": true, "society": true, "association": true,
	"federation": true, "anonima": true,
}

var personTitles = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sig": true, "ing": true, "avv": true,
}

var leadingStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true, "at": true,
	"this": true, "that": true, "these": true, "both": true,
	"il": true, "la": true, "le": true, "un": true, "una": true,
}

var locationCues = map[string]bool{
	"in": true, "at": true, "from": true, "near": true, "to": true,
}

// ExtractEntities runs the heuristic classifier over text and returns
// entities in the four fixed categories. Dates come from ExtractDates.
func ExtractEntities(text string) document.Entities {
	// Blank out date expressions first so month names never surface as
	// entity spans.
	masked := dayFirstRE.ReplaceAllStringFunc(text, blank)
	masked = monthFirstRE.ReplaceAllStringFunc(masked, blank)

	var persons, orgs, locations []string
	for _, loc := range capSpanRE.FindAllStringIndex(masked, -1) {
		span := masked[loc[0]:loc[1]]
		tokens := strings.Fields(span)

		for len(tokens) > 0 && leadingStopwords[normToken(tokens[0])] {
			tokens = tokens[1:]
		}
		if len(tokens) == 0 {
			continue
		}

		before := precedingWord(masked, loc[0])
		value := strings.Join(tokens, " ")
		switch {
		case hasOrgMarker(tokens):
			orgs = append(orgs, value)
		case personTitles[before]:
			persons = append(persons, value)
		case locationCues[before]:
			locations = append(locations, value)
		case len(tokens) >= 2:
			persons = append(persons, value)
		}
	}

	return document.Entities{
		Persons:       dedupe(persons),
		Organizations: dedupe(orgs),
		Locations:     dedupe(locations),
		Dates:         ExtractDates(text),
	}
}

func blank(match string) string {
	return strings.Repeat(" ", len(match))
}

// normToken lowercases a token and strips trailing punctuation so
// "Dr." and "Ltd.," hit their marker tables.
func normToken(tok string) string {
	return strings.ToLower(strings.TrimRight(tok, ".,;:"))
}

func hasOrgMarker(tokens []string) bool {
	for _, tok := range tokens {
		if orgMarkers[normToken(tok)] {
			return true
		}
	}
	return false
}

// precedingWord returns the lowercased word immediately before offset.
func precedingWord(text string, offset int) string {
	end := offset
	for end > 0 && (text[end-1] == ' ' || text[end-1] == '\t' || text[end-1] == '\n') {
		end--
	}
	start := end
	for start > 0 && text[start-1] != ' ' && text[start-1] != '\t' && text[start-1] != '\n' {
		start--
	}
	return strings.ToLower(strings.TrimRight(text[start:end], ".,;:"))
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := values[:0]
	for _, v := range values {
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
