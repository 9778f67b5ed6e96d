package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	isoDateRe = regexp.MustCompile(
		`\b(20\d{2}-\d{2}-\d{2})(?:[tT ](\d{2}:\d{2}(?::\d{2})?)\s*(Z|[+-]\d{2}:\d{2})?)?\b`)

	longDateRe = regexp.MustCompile(
		`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,)?\s+(20\d{2})\b`)

	monthNumbers = map[string]string{
		"jan": "01", "january": "01",
		"feb": "02", "february": "02",
		"mar": "03", "march": "03",
		"apr": "04", "april": "04",
		"may": "05",
		"jun": "06", "june": "06",
		"jul": "07", "july": "07",
		"aug": "08", "august": "08",
		"sep": "09", "sept": "09", "september": "09",
		"oct": "10", "october": "10",
		"nov": "11", "november": "11",
		"dec": "12", "december": "12",
	}
)

// ExtractDates finds date mentions in text. ISO-like dates default to
// midnight UTC when no time is given and to UTC when a time has no zone.
// Long-form dates ("Feb 28, 2026") are treated as end-of-day deadlines.
func ExtractDates(text string) []DateCandidate {
	var out []DateCandidate

	for _, m := range isoDateRe.FindAllStringSubmatch(text, -1) {
		date, clock, tz := m[1], m[2], m[3]
		var iso string
		switch {
		case clock == "":
			iso = date + "T00:00:00Z"
		case tz == "":
			iso = date + "T" + clock + "Z"
		default:
			iso = date + "T" + clock + tz
		}
		out = append(out, DateCandidate{Text: m[0], ISO: iso})
	}

	for _, m := range longDateRe.FindAllStringSubmatch(text, -1) {
		mon, ok := monthNumbers[strings.ToLower(m[1])]
		if !ok {
			continue
		}
		day := m[2]
		if len(day) == 1 {
			day = "0" + day
		}
		iso := fmt.Sprintf("%s-%s-%sT23:59:59Z", m[3], mon, day)
		out = append(out, DateCandidate{Text: m[0], ISO: iso})
	}

	return out
}

// isoLayouts accepted by ParseISOToEpoch. Extracted ISO strings may omit
// seconds when the source text did.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

// ParseISOToEpoch converts an extracted ISO string to epoch seconds.
// Returns 0 when the string is empty or unparseable.
func ParseISOToEpoch(iso string) int64 {
	if iso == "" {
		return 0
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.Unix()
		}
	}
	return 0
}

var (
	emailRe = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	urlRe   = regexp.MustCompile(`(?i)\bhttps?://[^\s)]+`)
	phoneRe = regexp.MustCompile(`\b(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
)

// ExtractContacts finds email addresses, URLs and US-style phone numbers.
// Every match is returned; callers may see repeats.
func ExtractContacts(text string) []Contact {
	var out []Contact
	for _, m := range emailRe.FindAllString(text, -1) {
		out = append(out, Contact{Type: ContactEmail, Value: m})
	}
	for _, m := range urlRe.FindAllString(text, -1) {
		out = append(out, Contact{Type: ContactURL, Value: m})
	}
	for _, m := range phoneRe.FindAllString(text, -1) {
		out = append(out, Contact{Type: ContactPhone, Value: m})
	}
	return out
}
