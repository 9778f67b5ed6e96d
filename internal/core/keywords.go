package core

import "strings"

// Keyword tables for the classifier. Matching is plain lowercase substring
// containment; list membership drives the rules, not control flow, so a
// single table edit extends a rule.

// Layer 1 subject fast paths.
var (
	doNotCareSubjectKeywords = []string{
		"game night",
		"watch party",
		"oscars watch party",
		"hangout",
		"come chill",
		"party",
		"karaoke",
		"free food",
		"speed dating",
		"lost and found",
		"sublet",
		"roommate",
		"rideshare",
		"ride share",
		"buy/sell",
		"buy sell",
		"join us for",
		"good vibes",
	}

	offTopicKeywords = []string{"not film related", "off topic", "unrelated"}

	grantSubjectKeywords = []string{
		"grant",
		"grants",
		"funding",
		"call for proposals",
		"submissions for",
		"submissions open",
		"grant deadline",
		"grant application",
		"applications are due",
		"apply by",
	}

	castingSubjectKeywords = []string{
		"casting call",
		"auditions",
		"audition",
		"extras needed",
		"extras call",
		"seeking extras",
		"self tapes",
		"voice actors",
		"seeking actors",
	}

	crewSubjectKeywords = []string{
		"crew call",
		"crew heads",
		"seeking crew",
		"looking for crew",
		"hiring",
		"petitions", // campus term for crew recruitment
	}

	resourceSubjectKeywords = []string{
		"sourcing",
		"borrow",
		"does anyone have",
		"looking to borrow",
		"need a ", // trailing space keeps "need actors" out
		"need an ",
		"seeking costume designer",
		"seeking marketing director",
		"be a costume designer",
	}

	eventSubjectKeywords = []string{
		"screening",
		"workshop",
		"panel",
		"info session",
		"infosession",
		"writer's circle",
		"writers circle",
		"masterclass",
		"q&a event",
	}

	adminSubjectKeywords = []string{
		"policy",
		"department",
		"program requirements",
		"official",
		"forms",
	}
)

// Layer 2 scoring lists, matched against subject (weight 5) and body.
var (
	grantScoreKeywords = []string{
		"grant", "funding", "apply", "application", "award",
		"call for proposals", "submissions",
	}
	crewScoreKeywords = []string{
		"looking for", "seeking", "hiring", "crew", "dp", "cinematographer",
		"sound", "editor", "gaffer", "grip", "producer", "pa",
		"production assistant",
	}
	castingScoreKeywords = []string{
		"casting", "extras", "audition", "actors", "self tape",
	}
	resourceScoreKeywords = []string{
		"borrow", "does anyone have", "sourcing", "equipment", "camera",
		"lens", "tripod", "location", "props", "costume", "wardrobe",
	}
	eventScoreKeywords = []string{
		"screening", "workshop", "panel", "info session", "meeting", "rsvp",
	}
	adminScoreKeywords = []string{
		"policy", "deadline reminder", "program", "requirements", "forms",
		"official",
	}
	doNotCareScoreKeywords = []string{
		"game night", "watch party", "free food", "come hang",
		"speed dating", "good vibes",
	}

	// GRANT guard: a low-scoring GRANT win needs one of these anywhere in
	// the combined text.
	strongGrantKeywords = []string{
		"grant", "funding", "call for proposals", "submissions",
	}
)

// Tag derivation lists used by finalize.
var (
	castingTermKeywords = []string{
		"casting call", "audition", "auditions", "extras", "casting",
		"self tape", "actors",
	}
	castingSpilloverKeywords = []string{"casting", "audition", "extras"}

	paidSignalKeywords   = []string{"paid", "$", "compensation", "wage", "salary"}
	unpaidSignalKeywords = []string{"unpaid", "volunteer", "no pay", "for experience"}

	propsKeywords     = []string{"props", "costume", "costumes", "wardrobe"}
	locationKeywords  = []string{"location", "locations", "shooting location"}
	equipmentKeywords = []string{"camera", "lens", "tripod", "equipment", "gear"}

	grantOpenKeywords = []string{
		"now open", "applications open", "submissions open", "apply by",
		"due", "deadline",
	}
	grantUpcomingKeywords = []string{"opens", "opening", "will open", "coming soon"}
	grantClosedKeywords   = []string{"closed", "deadline passed", "submissions closed"}

	postScopeKeywords   = []string{"post-production", "post production", "post"}
	equipScopeKeywords  = []string{"equipment", "gear"}
	travelScopeKeywords = []string{"travel"}
	prodScopeKeywords   = []string{"production", "shoot", "filming"}
)

// hasAny reports whether text contains any keyword from the list.
func hasAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// firstMatch returns the first keyword from the list contained in text.
func firstMatch(text string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return k, true
		}
	}
	return "", false
}

// countHits counts distinct keywords from the list contained in text.
func countHits(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}
