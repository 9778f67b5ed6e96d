package core

import (
	"fmt"
	"strings"
	"time"
)

// Confidence bounds enforced on every finalized classification.
const (
	confidenceFloor   = 0.35
	confidenceCeiling = 0.95
)

// Fixed confidences for the non-finalized paths.
const (
	doNotCareConfidence  = 0.90
	layer1Confidence     = 0.80
	layer2Confidence     = 0.70
	noMatchConfidence    = 0.35
	guardFailConfidence  = 0.40
	subjectScoringWeight = 5
)

// tagSet collects tags with set semantics while preserving insertion order,
// so reclassifying the same input yields the same tag slice.
type tagSet struct {
	order []string
	seen  map[string]struct{}
}

func newTagSet() *tagSet {
	return &tagSet{seen: make(map[string]struct{})}
}

func (s *tagSet) add(tag string) {
	if _, ok := s.seen[tag]; ok {
		return
	}
	s.seen[tag] = struct{}{}
	s.order = append(s.order, tag)
}

func (s *tagSet) list() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// subjectRule is one Layer 1 fast path: a fixed keyword list matched against
// the lowercased subject, routing to a category. Rules are evaluated in
// slice order; the first match wins.
type subjectRule struct {
	name     string
	keywords []string
	category Category
	tag      func(sub, combined string, tags *tagSet)
}

// subjectRules is the Layer 1 cascade. Order is the priority order.
var subjectRules = []subjectRule{
	{
		name:     "strong grant signal",
		keywords: grantSubjectKeywords,
		category: CategoryGrant,
	},
	{
		name:     "casting signal",
		keywords: castingSubjectKeywords,
		category: CategoryCrewCall,
		tag: func(sub, _ string, tags *tagSet) {
			tags.add(TagCastingRoles)
			if strings.Contains(sub, "extras") {
				tags.add(TagCastingExtras)
			}
		},
	},
	{
		name:     "crew recruitment signal",
		keywords: crewSubjectKeywords,
		category: CategoryCrewCall,
		tag: func(sub, _ string, tags *tagSet) {
			// casting spillover in the subject
			if hasAny(sub, castingSpilloverKeywords) {
				tags.add(TagCastingRoles)
				if strings.Contains(sub, "extras") {
					tags.add(TagCastingExtras)
				}
			}
		},
	},
	{
		name:     "resource request signal",
		keywords: resourceSubjectKeywords,
		category: CategoryResource,
		tag: func(_, combined string, tags *tagSet) {
			if hasAny(combined, propsKeywords) {
				tags.add(TagPropsCostumes)
			}
			if strings.Contains(combined, "location") {
				tags.add(TagLocation)
			}
			if hasAny(combined, []string{"camera", "lens", "tripod", "equipment"}) {
				tags.add(TagEquipment)
			}
		},
	},
	{
		name:     "event signal",
		keywords: eventSubjectKeywords,
		category: CategoryEvent,
	},
	{
		name:     "admin signal",
		keywords: adminSubjectKeywords,
		category: CategoryAdmin,
	},
}

// scoreEntry is one Layer 2 scored candidate. evalOrder doubles as the
// tie-break order: the first entry at the max score wins.
type scoreEntry struct {
	name     string
	keywords []string
}

var scoreOrder = []scoreEntry{
	{"DO_NOT_CARE", doNotCareScoreKeywords},
	{"GRANT", grantScoreKeywords},
	{"CASTING", castingScoreKeywords},
	{"CREW_CALL", crewScoreKeywords},
	{"RESOURCE", resourceScoreKeywords},
	{"EVENT", eventScoreKeywords},
	{"ADMIN", adminScoreKeywords},
}

// Classifier assigns a category, tags, confidence and audit reasons to a
// message. It is a pure function of its input: no I/O, no shared state,
// safe for concurrent use. now is injectable so grant open/closed status
// is testable.
type Classifier struct {
	now func() time.Time
}

// NewClassifier returns a classifier using the wall clock.
func NewClassifier() *Classifier {
	return &Classifier{now: time.Now}
}

// NewClassifierAt returns a classifier with a fixed notion of now.
func NewClassifierAt(now func() time.Time) *Classifier {
	return &Classifier{now: now}
}

// Classify runs the two-layer rule engine. It never fails: every input,
// including empty strings, maps to exactly one category.
func (c *Classifier) Classify(subject, body string) Classification {
	sub := strings.ToLower(subject)
	bod := strings.ToLower(body)
	combined := sub + "\n" + bod

	tags := newTagSet()
	var reasons []string

	dates := ExtractDates(combined)
	contacts := ExtractContacts(subject + "\n" + body)

	// Layer 1.0: social/off-topic short-circuit. The only rule that also
	// reads the body at this layer, and the only one that skips finalize.
	if hasAny(sub, doNotCareSubjectKeywords) || hasAny(combined, offTopicKeywords) {
		reasons = append(reasons, "DO_NOT_CARE: subject contains social/off-topic signal")
		return Classification{
			Category:   CategoryDoNotCare,
			Tags:       tags.list(),
			Confidence: doNotCareConfidence,
			Reasons:    reasons,
			Dates:      dates,
			Contacts:   contacts,
		}
	}

	// Layer 1: subject fast paths, first match wins.
	for _, rule := range subjectRules {
		kw, ok := firstMatch(sub, rule.keywords)
		if !ok {
			continue
		}
		reasons = append(reasons, fmt.Sprintf("%s: subject contains %s: %q", rule.category, rule.name, kw))
		if rule.tag != nil {
			rule.tag(sub, combined, tags)
		}
		return c.finalize(rule.category, tags, reasons, combined, dates, contacts, layer1Confidence)
	}

	// Layer 2: weighted keyword scoring, subject hits count 5x body hits.
	scores := make([]int, len(scoreOrder))
	maxScore := 0
	for i, entry := range scoreOrder {
		scores[i] = subjectScoringWeight*countHits(sub, entry.keywords) + countHits(bod, entry.keywords)
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
	}

	if maxScore == 0 {
		reasons = append(reasons, "L2: no keyword matches -> OTHER")
		return Classification{
			Category:   CategoryOther,
			Tags:       tags.list(),
			Confidence: noMatchConfidence,
			Reasons:    reasons,
			Dates:      dates,
			Contacts:   contacts,
		}
	}

	winner := ""
	for i, entry := range scoreOrder {
		if scores[i] == maxScore {
			winner = entry.name
			break
		}
	}

	category := CategoryOther
	confidence := layer2Confidence

	switch winner {
	case "DO_NOT_CARE":
		category = CategoryDoNotCare
		reasons = append(reasons, fmt.Sprintf("L2: DO_NOT_CARE scored highest (%d)", maxScore))
	case "GRANT":
		// A low GRANT score with no strong signal is usually a false hit
		// from "apply"/"application".
		if maxScore >= 2 || hasAny(combined, strongGrantKeywords) {
			category = CategoryGrant
			reasons = append(reasons, fmt.Sprintf("L2: GRANT scored highest (%d)", maxScore))
		} else {
			reasons = append(reasons, fmt.Sprintf("L2: GRANT guard failed (score=%d, no strong signal) -> OTHER", maxScore))
			category = CategoryOther
			confidence = guardFailConfidence
		}
	case "CASTING":
		category = CategoryCrewCall
		tags.add(TagCastingRoles)
		if strings.Contains(combined, "extras") {
			tags.add(TagCastingExtras)
		}
		reasons = append(reasons, fmt.Sprintf("L2: CASTING scored highest (%d)", maxScore))
	case "CREW_CALL":
		category = CategoryCrewCall
		if hasAny(combined, castingSpilloverKeywords) {
			tags.add(TagCastingRoles)
			if strings.Contains(combined, "extras") {
				tags.add(TagCastingExtras)
			}
		}
		reasons = append(reasons, fmt.Sprintf("L2: CREW_CALL scored highest (%d)", maxScore))
	case "RESOURCE":
		category = CategoryResource
		reasons = append(reasons, fmt.Sprintf("L2: RESOURCE scored highest (%d)", maxScore))
	case "EVENT":
		category = CategoryEvent
		reasons = append(reasons, fmt.Sprintf("L2: EVENT scored highest (%d)", maxScore))
	case "ADMIN":
		category = CategoryAdmin
		reasons = append(reasons, fmt.Sprintf("L2: ADMIN scored highest (%d)", maxScore))
	}

	return c.finalize(category, tags, reasons, combined, dates, contacts, confidence)
}

// finalize derives category-specific tags and grant fields, then clamps
// confidence to [0.35, 0.95].
func (c *Classifier) finalize(
	category Category,
	tags *tagSet,
	reasons []string,
	combined string,
	dates []DateCandidate,
	contacts []Contact,
	confidence float64,
) Classification {
	result := Classification{
		Category: category,
		Dates:    dates,
		Contacts: contacts,
	}

	switch category {
	case CategoryCrewCall:
		if hasAny(combined, castingTermKeywords) {
			tags.add(TagCastingRoles)
			if strings.Contains(combined, "extras") {
				tags.add(TagCastingExtras)
			}
		}

		paid := hasAny(combined, paidSignalKeywords)
		unpaid := hasAny(combined, unpaidSignalKeywords)
		switch {
		case paid && !unpaid:
			tags.add(TagPaid)
		case unpaid && !paid:
			tags.add(TagUnpaid)
		default:
			// conflicting signals and no signal collapse to the same tag
			tags.add(TagPayUnclear)
		}

		if len(contacts) > 0 {
			tags.add(TagHasContact)
		}

	case CategoryResource:
		if hasAny(combined, propsKeywords) {
			tags.add(TagPropsCostumes)
		}
		if hasAny(combined, locationKeywords) {
			tags.add(TagLocation)
		}
		if hasAny(combined, equipmentKeywords) {
			tags.add(TagEquipment)
		}

	case CategoryEvent:
		if strings.Contains(combined, "screening") {
			tags.add(TagScreening)
		}
		if strings.Contains(combined, "workshop") {
			tags.add(TagWorkshop)
		}
		if strings.Contains(combined, "panel") {
			tags.add(TagPanel)
		}
		if hasAny(combined, []string{"info session", "infosession"}) {
			tags.add(TagInfoSession)
		}
		if strings.Contains(combined, "meeting") {
			tags.add(TagMeeting)
		}
		if strings.Contains(combined, "rsvp") {
			tags.add(TagRSVP)
		}

	case CategoryGrant:
		c.finalizeGrant(&result, tags, &reasons, combined, dates)
	}

	if confidence < confidenceFloor {
		confidence = confidenceFloor
	}
	if confidence > confidenceCeiling {
		confidence = confidenceCeiling
	}

	result.Tags = tags.list()
	result.Confidence = confidence
	result.Reasons = reasons
	return result
}

// finalizeGrant derives deadline, eligibility, scope and open/closed status
// for GRANT-classified messages.
func (c *Classifier) finalizeGrant(
	result *Classification,
	tags *tagSet,
	reasons *[]string,
	combined string,
	dates []DateCandidate,
) {
	if len(dates) > 0 {
		if epoch := ParseISOToEpoch(dates[0].ISO); epoch != 0 {
			result.GrantDeadlineAt = epoch
			tags.add(TagHasDeadline)
		}
	}

	// Substring checks on purpose: "undergrad" also satisfies the "grad"
	// probe, so undergrad-only announcements read as eligibility "both".
	hasUndergrad := strings.Contains(combined, "undergrad") || strings.Contains(combined, "undergraduate")
	hasGrad := strings.Contains(combined, "grad") || strings.Contains(combined, "graduate")
	switch {
	case hasUndergrad && hasGrad:
		result.Eligibility = EligBoth
		tags.add(TagEligBoth)
	case hasUndergrad:
		result.Eligibility = EligUndergrad
		tags.add(TagEligUndergrad)
	case hasGrad:
		result.Eligibility = EligGrad
		tags.add(TagEligGrad)
	default:
		result.Eligibility = EligUnclear
		tags.add(TagEligUnclear)
	}

	// Scope in fixed priority order: post beats production so that
	// "post-production" is not swallowed by the "production" probe.
	switch {
	case hasAny(combined, postScopeKeywords):
		result.Scope = ScopePost
		tags.add(TagScopePost)
	case hasAny(combined, equipScopeKeywords):
		result.Scope = ScopeEquipment
		tags.add(TagScopeEquip)
	case hasAny(combined, travelScopeKeywords):
		result.Scope = ScopeTravel
		tags.add(TagScopeTravel)
	case hasAny(combined, prodScopeKeywords):
		result.Scope = ScopeProduction
		tags.add(TagScopeProd)
	default:
		result.Scope = ScopeUnclear
		tags.add(TagScopeUnclear)
	}

	now := c.now().Unix()
	switch {
	case result.GrantDeadlineAt != 0:
		if result.GrantDeadlineAt >= now {
			result.GrantStatus = GrantOpen
			tags.add(TagGrantOpen)
		} else {
			result.GrantStatus = GrantClosed
			tags.add(TagGrantClosed)
		}
	case hasAny(combined, grantClosedKeywords):
		result.GrantStatus = GrantClosed
		tags.add(TagGrantClosed)
	case hasAny(combined, grantOpenKeywords):
		result.GrantStatus = GrantOpen
		tags.add(TagGrantOpen)
		*reasons = append(*reasons, "grant appears open (no parseable deadline)")
	case hasAny(combined, grantUpcomingKeywords):
		result.GrantStatus = GrantUpcoming
		tags.add(TagGrantUpcoming)
	default:
		result.GrantStatus = GrantUnclear
		tags.add(TagGrantUnclear)
	}
}
