package enrich

import (
	"errors"
	"strings"
)

// ErrNoJSON reports that a model response contained no bracketed or
// braced span to parse.
var ErrNoJSON = errors.New("no JSON payload in model output")

// CleanModelJSON extracts the JSON payload from raw model output.
//
// Models wrap JSON in markdown code fences and sometimes surround it
// with prose. The fences are stripped first; then, if prose remains,
// the outermost bracketed or braced span is sliced out — whichever
// opener appears first decides whether the payload is treated as an
// array or an object. Returns ErrNoJSON when neither is present.
func CleanModelJSON(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)

	if strings.HasPrefix(cleaned, "```") {
		lines := strings.Split(cleaned, "\n")
		start, end := 0, len(lines)
		for i, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				if start == 0 {
					start = i + 1
				} else {
					end = i
					break
				}
			}
		}
		if start > 0 && end > start {
			cleaned = strings.Join(lines[start:end], "\n")
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	arrOpen := strings.Index(cleaned, "[")
	objOpen := strings.Index(cleaned, "{")

	switch {
	case objOpen >= 0 && (arrOpen < 0 || objOpen < arrOpen):
		if close := strings.LastIndex(cleaned, "}"); close > objOpen {
			return cleaned[objOpen : close+1], nil
		}
	case arrOpen >= 0:
		if close := strings.LastIndex(cleaned, "]"); close > arrOpen {
			return cleaned[arrOpen : close+1], nil
		}
	}
	return "", ErrNoJSON
}

// truncateForError shortens a raw model response for diagnostics.
func truncateForError(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
