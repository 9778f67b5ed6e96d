package core

import (
	"regexp"
	"strings"

	"github.com/mikey/listserv-triage/internal/utils"
)

// maxBodyBytes caps stored bodies after reply-stripping.
const maxBodyBytes = 8000

// replyMarkers are the quoted-reply separators recognized by
// StripQuotedReply. The body is cut at the earliest match.
var replyMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\nOn .* wrote:\n`),                        // Gmail
	regexp.MustCompile(`(?i)\n&gt;.*wrote:\n`),                        // HTML-encoded Gmail
	regexp.MustCompile(`(?i)\nFrom: .*\nSent: .*\nTo: .*\nSubject: .*\n`), // Outlook header block
	regexp.MustCompile(`(?i)\n-----Original Message-----\n`),          // Outlook
	regexp.MustCompile(`\n_{2,}\n`),                                   // horizontal rule "____"
	regexp.MustCompile(`\n-{3,}\n`),                                   // horizontal rule "---"
	regexp.MustCompile(`\n> .*\n(> .*\n)+`),                           // quoted lines
	regexp.MustCompile(`\n&gt; .*\n(&gt; .*\n)+`),                     // HTML-encoded quoted lines
}

// StripQuotedReply keeps the new-content top of an email body by cutting
// at the earliest reply separator, then caps the result. Best effort: a
// horizontal rule inside real content cuts too, and unrecognized quote
// styles slip through.
func StripQuotedReply(body string) string {
	cutAt := len(body)
	for _, re := range replyMarkers {
		if loc := re.FindStringIndex(body); loc != nil && loc[0] < cutAt {
			cutAt = loc[0]
		}
	}
	return utils.CapBytes(strings.TrimSpace(body[:cutAt]), maxBodyBytes)
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeSubject collapses runs of whitespace and trims.
func NormalizeSubject(subject string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(subject, " "))
}
