package enrich

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Two literal date shapes are recognized: "28 August 1929" and
// "August 28, 1929". Standalone years are deliberately not extracted —
// a bare "1929" is far more often a label or a quantity than a date.
var (
	dayFirstRE   = regexp.MustCompile(`\b(\d{1,2})\s+([A-Za-z]+)\s+(\d{4})\b`)
	monthFirstRE = regexp.MustCompile(`\b([A-Za-z]+)\s+(\d{1,2}),\s*(\d{4})\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// ExtractDates finds well-formed calendar dates in text and returns
// them as deduplicated ISO (YYYY-MM-DD) strings in sorted order.
func ExtractDates(text string) []string {
	seen := map[string]bool{}

	for _, m := range dayFirstRE.FindAllStringSubmatch(text, -1) {
		if iso, ok := toISO(m[1], m[2], m[3]); ok {
			seen[iso] = true
		}
	}
	for _, m := range monthFirstRE.FindAllStringSubmatch(text, -1) {
		if iso, ok := toISO(m[2], m[1], m[3]); ok {
			seen[iso] = true
		}
	}

	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// toISO validates day/month/year parts and formats them as ISO.
// The match groups guarantee numeric day and year; the month word still
// has to be a real month, and the day has to exist in that month.
func toISO(dayStr, monthWord, yearStr string) (string, bool) {
	month, ok := monthsByName[strings.ToLower(monthWord)]
	if !ok {
		return "", false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return "", false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return "", false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || d.Month() != month {
		// Day overflowed the month (e.g. 31 February).
		return "", false
	}
	return d.Format("2006-01-02"), true
}
