package core

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// fixedNow keeps grant open/closed status deterministic in tests.
var fixedNow = func() time.Time {
	return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
}

func TestClassifySubjectFastPaths(t *testing.T) {
	c := NewClassifierAt(fixedNow)

	tests := []struct {
		name         string
		subject      string
		body         string
		wantCategory Category
		wantTags     []string
	}{
		{
			name:         "grant subject",
			subject:      "Production Grant Applications Due March 1, 2026",
			body:         "Funding for student films. Apply online.",
			wantCategory: CategoryGrant,
		},
		{
			name:         "casting call with extras",
			subject:      "Casting Call: Extras Needed",
			body:         "",
			wantCategory: CategoryCrewCall,
			wantTags:     []string{TagCastingRoles, TagCastingExtras, TagPayUnclear},
		},
		{
			name:         "crew recruitment",
			subject:      "Crew Call for spring thesis films",
			body:         "",
			wantCategory: CategoryCrewCall,
			wantTags:     []string{TagPayUnclear},
		},
		{
			name:         "resource request",
			subject:      "Does anyone have a boom pole?",
			body:         "",
			wantCategory: CategoryResource,
		},
		{
			name:         "event announcement",
			subject:      "Screening this Thursday",
			body:         "",
			wantCategory: CategoryEvent,
			wantTags:     []string{TagScreening},
		},
		{
			name:         "department admin",
			subject:      "Updated program requirements",
			body:         "",
			wantCategory: CategoryAdmin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.subject, tt.body)
			if got.Category != tt.wantCategory {
				t.Fatalf("Classify(%q) category = %s, want %s", tt.subject, got.Category, tt.wantCategory)
			}
			if got.Confidence != layer1Confidence {
				t.Errorf("confidence = %.2f, want %.2f", got.Confidence, layer1Confidence)
			}
			if len(got.Reasons) == 0 {
				t.Fatal("expected at least one reason")
			}
			if tt.wantTags != nil && !reflect.DeepEqual(got.Tags, tt.wantTags) {
				t.Errorf("tags = %v, want %v", got.Tags, tt.wantTags)
			}
		})
	}
}

func TestClassifyGrantFastPathReason(t *testing.T) {
	c := NewClassifierAt(fixedNow)

	got := c.Classify("Production Grant Applications Due March 1, 2026", "Apply with a budget.")
	if got.Category != CategoryGrant {
		t.Fatalf("category = %s, want GRANT", got.Category)
	}
	if !strings.Contains(got.Reasons[0], "strong grant signal") {
		t.Errorf("reasons[0] = %q, expected mention of strong grant signal", got.Reasons[0])
	}
	if got.GrantDeadlineAt == 0 {
		t.Fatal("expected a parsed deadline")
	}
	want := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC).Unix()
	if got.GrantDeadlineAt != want {
		t.Errorf("deadline = %d, want %d", got.GrantDeadlineAt, want)
	}
	if got.GrantStatus != GrantOpen {
		t.Errorf("status = %s, want open", got.GrantStatus)
	}
	if got.Scope != ScopeProduction {
		t.Errorf("scope = %s, want production", got.Scope)
	}
}

func TestClassifyDoNotCareShortCircuit(t *testing.T) {
	c := NewClassifierAt(fixedNow)

	got := c.Classify("Game Night Friday!", "Snacks provided, bring a friend.")
	if got.Category != CategoryDoNotCare {
		t.Fatalf("category = %s, want DO_NOT_CARE", got.Category)
	}
	if got.Confidence != doNotCareConfidence {
		t.Errorf("confidence = %.2f, want %.2f", got.Confidence, doNotCareConfidence)
	}
	if len(got.Reasons) != 1 || !strings.Contains(got.Reasons[0], "DO_NOT_CARE") {
		t.Errorf("reasons = %v", got.Reasons)
	}
}

func TestClassifyLayer2Scoring(t *testing.T) {
	c := NewClassifierAt(fixedNow)

	got := c.Classify(
		"Help needed this weekend",
		"We are looking for a gaffer and a grip for our shoot. Paid $200/day. Contact jane@school.edu",
	)
	if got.Category != CategoryCrewCall {
		t.Fatalf("category = %s, want CREW_CALL", got.Category)
	}
	if got.Confidence != layer2Confidence {
		t.Errorf("confidence = %.2f, want %.2f", got.Confidence, layer2Confidence)
	}
	foundScore := false
	for _, r := range got.Reasons {
		if strings.Contains(r, "CREW_CALL scored highest") {
			foundScore = true
		}
	}
	if !foundScore {
		t.Errorf("reasons = %v, expected a CREW_CALL score reason", got.Reasons)
	}

	hasTag := func(tag string) bool {
		for _, tg := range got.Tags {
			if tg == tag {
				return true
			}
		}
		return false
	}
	if !hasTag(TagPaid) {
		t.Errorf("tags = %v, expected PAID", got.Tags)
	}
	if !hasTag(TagHasContact) {
		t.Errorf("tags = %v, expected HAS_CONTACT_INFO", got.Tags)
	}
}

func TestClassifyLayer2TieBreak(t *testing.T) {
	c := NewClassifierAt(fixedNow)

	// "casting" and "crew" score one body hit each; the earlier candidate
	// in the evaluation order wins the tie.
	got := c.Classify("Thesis question", "casting crew")
	if got.Category != CategoryCrewCall {
		t.Fatalf("category = %s, want CREW_CALL", got.Category)
	}
	foundCasting := false
	for _, r := range got.Reasons {
		if strings.Contains(r, "CASTING scored highest") {
			foundCasting = true
		}
	}
	if !foundCasting {
		t.Errorf("reasons = %v, expected CASTING to win the tie", got.Reasons)
	}
}

func TestClassifyGrantGuard(t *testing.T) {
	c := NewClassifierAt(fixedNow)

	tests := []struct {
		name           string
		subject        string
		body           string
		wantCategory   Category
		wantConfidence float64
	}{
		{
			name:           "weak apply hit falls back to OTHER",
			subject:        "Club sign-ups",
			body:           "please apply to join our club",
			wantCategory:   CategoryOther,
			wantConfidence: guardFailConfidence,
		},
		{
			name:           "strong signal passes the guard",
			subject:        "Thesis support",
			body:           "apply for our film grant",
			wantCategory:   CategoryGrant,
			wantConfidence: layer2Confidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.subject, tt.body)
			if got.Category != tt.wantCategory {
				t.Fatalf("category = %s, want %s", got.Category, tt.wantCategory)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %.2f, want %.2f", got.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestClassifyNoMatch(t *testing.T) {
	c := NewClassifierAt(fixedNow)

	got := c.Classify("hello", "nothing of note here")
	if got.Category != CategoryOther {
		t.Fatalf("category = %s, want OTHER", got.Category)
	}
	if got.Confidence != noMatchConfidence {
		t.Errorf("confidence = %.2f, want %.2f", got.Confidence, noMatchConfidence)
	}
}

func TestClassifyPayTags(t *testing.T) {
	c := NewClassifierAt(fixedNow)

	tests := []struct {
		name    string
		body    string
		wantTag string
	}{
		{"paid", "Rate is $150/day.", TagPaid},
		{"unpaid", "This is a volunteer position.", TagUnpaid},
		{"no signal", "Shooting in March.", TagPayUnclear},
		{"conflicting signals", "Unpaid, but meals compensation provided.", TagPayUnclear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify("Crew call", tt.body)
			if got.Category != CategoryCrewCall {
				t.Fatalf("category = %s, want CREW_CALL", got.Category)
			}
			found := false
			for _, tg := range got.Tags {
				if tg == tt.wantTag {
					found = true
				}
			}
			if !found {
				t.Errorf("tags = %v, want %s", got.Tags, tt.wantTag)
			}
		})
	}
}

func TestClassifyGrantEligibility(t *testing.T) {
	c := NewClassifierAt(fixedNow)

	tests := []struct {
		name string
		body string
		want string
	}{
		// "undergrad" also satisfies the "grad" substring probe, so an
		// undergrad-only announcement reads as both.
		{"undergrad reads as both", "Funding for undergrad filmmakers.", EligBoth},
		{"grad only", "Open to graduate students.", EligGrad},
		{"both named", "Undergraduate and graduate students welcome.", EligBoth},
		{"no mention", "Open to all community members.", EligUnclear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify("Grant announcement", tt.body)
			if got.Category != CategoryGrant {
				t.Fatalf("category = %s, want GRANT", got.Category)
			}
			if got.Eligibility != tt.want {
				t.Errorf("eligibility = %s, want %s", got.Eligibility, tt.want)
			}
		})
	}
}

func TestClassifyGrantStatus(t *testing.T) {
	c := NewClassifierAt(fixedNow)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"future deadline is open", "Submit by 2026-04-30.", GrantOpen},
		{"past deadline is closed", "Submit by 2025-11-01.", GrantClosed},
		{"closed keyword", "Submissions closed for this cycle.", GrantClosed},
		{"open keyword without date", "Applications open until further notice.", GrantOpen},
		{"upcoming keyword", "The fellowship will open in spring.", GrantUpcoming},
		{"no signal", "More details to follow.", GrantUnclear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify("Grant announcement", tt.body)
			if got.Category != CategoryGrant {
				t.Fatalf("category = %s, want GRANT", got.Category)
			}
			if got.GrantStatus != tt.want {
				t.Errorf("status = %s, want %s", got.GrantStatus, tt.want)
			}
		})
	}
}

func TestClassifyIdempotent(t *testing.T) {
	c := NewClassifierAt(fixedNow)

	subject := "Casting Call: Extras Needed for Feb shoot"
	body := "Paid extras needed 2026-02-20. Email casting@school.edu"

	first := c.Classify(subject, body)
	second := c.Classify(subject, body)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("classification not stable:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

func TestClassifyConfidenceBounds(t *testing.T) {
	c := NewClassifierAt(fixedNow)

	inputs := []struct{ subject, body string }{
		{"", ""},
		{"Game Night Friday!", ""},
		{"Grant deadline extended", "apply by 2026-05-01"},
		{"Crew call", "unpaid volunteer gig"},
		{"random note", "please apply to join"},
		{"Screening + Q&A event", "RSVP required"},
	}

	for _, in := range inputs {
		got := c.Classify(in.subject, in.body)
		if got.Confidence < confidenceFloor-1e-9 || got.Confidence > confidenceCeiling+1e-9 {
			t.Errorf("Classify(%q, %q) confidence %.2f outside [%.2f, %.2f]",
				in.subject, in.body, got.Confidence, confidenceFloor, confidenceCeiling)
		}
		if got.Category == "" {
			t.Errorf("Classify(%q, %q) returned empty category", in.subject, in.body)
		}
	}
}
