package core

// Category is the single label assigned to every classified message.
type Category string

const (
	CategoryGrant     Category = "GRANT"
	CategoryCrewCall  Category = "CREW_CALL"
	CategoryEvent     Category = "EVENT"
	CategoryResource  Category = "RESOURCE"
	CategoryAdmin     Category = "ADMIN"
	CategoryOther     Category = "OTHER"
	CategoryDoNotCare Category = "DO_NOT_CARE"
)

// Categories lists every valid category value.
var Categories = []Category{
	CategoryGrant,
	CategoryCrewCall,
	CategoryEvent,
	CategoryResource,
	CategoryAdmin,
	CategoryOther,
	CategoryDoNotCare,
}

// Tags attached to classified messages. Category-specific tags plus meta
// tags such as BUMP and HAS_DEADLINE.
const (
	TagBump          = "BUMP"
	TagHasDeadline   = "HAS_DEADLINE"
	TagHasContact    = "HAS_CONTACT_INFO"
	TagCastingRoles  = "CASTING_ROLES"
	TagCastingExtras = "CASTING_EXTRAS"
	TagPaid          = "PAID"
	TagUnpaid        = "UNPAID"
	TagPayUnclear    = "PAY_UNCLEAR"
	TagPropsCostumes = "PROPS_COSTUMES"
	TagLocation      = "LOCATION"
	TagEquipment     = "EQUIPMENT"
	TagScreening     = "SCREENING"
	TagWorkshop      = "WORKSHOP"
	TagPanel         = "PANEL"
	TagInfoSession   = "INFO_SESSION"
	TagMeeting       = "MEETING"
	TagRSVP          = "RSVP"
	TagGrantOpen     = "GRANT_OPEN"
	TagGrantClosed   = "GRANT_CLOSED"
	TagGrantUpcoming = "GRANT_UPCOMING"
	TagGrantUnclear  = "GRANT_STATUS_UNCLEAR"
	TagScopeProd     = "SCOPE_PRODUCTION"
	TagScopePost     = "SCOPE_POST"
	TagScopeEquip    = "SCOPE_EQUIPMENT"
	TagScopeTravel   = "SCOPE_TRAVEL"
	TagScopeUnclear  = "SCOPE_UNCLEAR"
	TagEligUndergrad = "ELIG_UNDERGRAD"
	TagEligGrad      = "ELIG_GRAD"
	TagEligBoth      = "ELIG_BOTH"
	TagEligUnclear   = "ELIG_UNCLEAR"
)

// Grant status values derived for GRANT-classified messages.
const (
	GrantOpen     = "open"
	GrantUpcoming = "upcoming"
	GrantClosed   = "closed"
	GrantUnclear  = "unclear"
)

// Eligibility values for GRANT-classified messages.
const (
	EligUndergrad = "undergrad"
	EligGrad      = "grad"
	EligBoth      = "both"
	EligUnclear   = "unclear"
)

// Grant scope values for GRANT-classified messages.
const (
	ScopeProduction = "production"
	ScopePost       = "post"
	ScopeEquipment  = "equipment"
	ScopeTravel     = "travel"
	ScopeUnclear    = "unclear"
)

// Message is a raw listserv email as it arrives from a transport
// (CSV import, SMTP listener).
type Message struct {
	ProviderMessageID string
	Source            string
	Listserv          string
	FromEmail         string
	FromName          string
	ReplyTo           string
	ToEmails          []string
	Subject           string
	BodyText          string
	BodyHTML          string
	SentAt            int64 // epoch seconds
}

// DateCandidate is a date mention found in message text. ISO is empty when
// the match could not be normalized.
type DateCandidate struct {
	Text string `json:"text"`
	ISO  string `json:"iso"`
}

// Contact types extracted from message text.
const (
	ContactEmail = "email"
	ContactURL   = "url"
	ContactPhone = "phone"
)

// Contact is a typed contact string found in message text.
type Contact struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Classification is the output of the rule engine for one message.
type Classification struct {
	Category   Category
	Tags       []string
	Confidence float64
	Reasons    []string
	Dates      []DateCandidate
	Contacts   []Contact

	// Grant-only derived fields; zero values otherwise.
	GrantStatus     string
	GrantDeadlineAt int64 // epoch seconds, 0 when no parseable deadline
	Eligibility     string
	Scope           string
}

// Record is the persisted shape of a classified message. The ID is a
// content-derived hash, so re-ingesting the same message always maps to
// the same row.
type Record struct {
	ID                string
	ProviderMessageID string
	Source            string
	Listserv          string
	FromEmail         string
	FromName          string
	ReplyTo           string
	ToEmails          []string
	Subject           string
	BodyText          string
	BodyHTML          string
	SentAt            int64

	Category    Category
	Tags        []string
	Confidence  float64
	Reasons     []string
	IsBump      bool
	ThreadKey   string
	CanonicalID string

	Dates    []DateCandidate
	Contacts []Contact

	GrantStatus     string
	GrantDeadlineAt int64
	Eligibility     string
	Scope           string

	ReviewNote string

	CreatedAt int64
	UpdatedAt int64
}

// HasTag reports whether the record carries the given tag.
func (r *Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Opportunity is the derived row kept in sync for every GRANT-classified
// message, keyed by the owning message id.
type Opportunity struct {
	ID          string
	EmailID     string
	Title       string
	Status      string
	DeadlineAt  int64
	Eligibility string
	Scope       string
	CreatedAt   int64
	UpdatedAt   int64
}

// ImportStats is the aggregate result of a bulk CSV import.
// Inserted+Deduped+Failed+SkippedOld always equals Total.
type ImportStats struct {
	Inserted   int `json:"inserted"`
	Deduped    int `json:"deduped"`
	Failed     int `json:"failed"`
	SkippedOld int `json:"skippedOld"`
	Total      int `json:"total"`
}
