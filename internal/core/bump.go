package core

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	bumpSubjectRe   = regexp.MustCompile(`(?i)\bbump(?:ing)?\b`)
	bumpBodyLineRe  = regexp.MustCompile(`(?im)^\s*(bump|bumping|reposting|signal boost)\b`)
	replySubjectRe  = regexp.MustCompile(`(?i)^\s*re\s*:`)
	shortFollowupRe = regexp.MustCompile(`(?i)(following up|any updates|ping|just checking|bumping)`)
)

// maxFollowupBodyLen is the body size under which a "Re:" reply with
// followup language counts as a bump.
const maxFollowupBodyLen = 200

// BumpResult is the outcome of bump detection for one message.
type BumpResult struct {
	IsBump  bool
	Reasons []string
}

// DetectBump reports whether a message looks like a thread bump: a
// follow-up that re-surfaces a prior request without new information.
func DetectBump(subject, body string) BumpResult {
	var reasons []string

	if bumpSubjectRe.MatchString(subject) {
		reasons = append(reasons, "subject contains bump/bumping")
	}
	if bumpBodyLineRe.MatchString(body) {
		reasons = append(reasons, "body contains standalone bump-like phrase")
	}
	if replySubjectRe.MatchString(subject) {
		trimmed := strings.TrimSpace(body)
		if len(trimmed) <= maxFollowupBodyLen && shortFollowupRe.MatchString(trimmed) {
			reasons = append(reasons, "re: + short followup language")
		}
	}

	return BumpResult{IsBump: len(reasons) > 0, Reasons: reasons}
}

var (
	replyPrefixRe  = regexp.MustCompile(`^(re|fwd|fw)\s*:\s*`)
	bracketTagRe   = regexp.MustCompile(`^\[[^\]]+\]\s*`)
	trailingBumpRe = regexp.MustCompile(`\(\s*bump\s*\)\s*$`)
	trailingWordRe = regexp.MustCompile(`\bbump\b\s*$`)
)

// MakeThreadKey normalizes a subject into the identity that groups an
// original message with its replies and bumps. Stable across reply
// variations: "Re: Re: Fwd: Grant Info (bump)" and "Grant Info" both map
// to "grant info".
func MakeThreadKey(subject string) string {
	s := strings.ToLower(NormalizeSubject(norm.NFC.String(subject)))

	for {
		next := replyPrefixRe.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}

	s = bracketTagRe.ReplaceAllString(s, "")
	s = trailingBumpRe.ReplaceAllString(s, "")
	s = trailingWordRe.ReplaceAllString(s, "")
	return NormalizeSubject(s)
}
