package core

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned by Insert when a record with the same id
	// already exists. The ingestion coordinator relies on this conflict
	// signal instead of an in-process lock, so concurrent replays of the
	// same message still store exactly one row.
	ErrDuplicate = errors.New("record already exists")
)

// Query filters the read endpoint's row listing. Zero values mean
// "no filter"; results are ordered by send time descending.
type Query struct {
	Category         string
	Tag              string
	Text             string
	Since            int64
	Until            int64
	IncludeDoNotCare bool
	Limit            int
	Offset           int
}

// EmailStore is the storage port for classified records and derived
// opportunities. Any backing store (relational, document, in-memory)
// satisfies the contract; id uniqueness must be enforced by the store.
type EmailStore interface {
	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Insert stores a new record, returning ErrDuplicate when the id is
	// already present.
	Insert(ctx context.Context, rec *Record) error

	// Touch bumps the updated_at timestamp of an existing record.
	Touch(ctx context.Context, id string, at int64) error

	// LatestByThreadKey returns the most recent non-DO_NOT_CARE record in
	// the thread with sentAt in [minSentAt, before), or ErrNotFound.
	LatestByThreadKey(ctx context.Context, threadKey string, minSentAt, before int64) (*Record, error)

	// Search returns records matching the query, newest first.
	Search(ctx context.Context, q Query) ([]Record, error)

	// DeleteOlderThan removes records sent before the cutoff, returning
	// the number removed.
	DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error)

	// UpsertOpportunity inserts or overwrites the opportunity row keyed
	// by its owning email id.
	UpsertOpportunity(ctx context.Context, opp *Opportunity) error

	// PurgeOpportunities removes opportunities that are closed, past
	// their deadline at the given time, or orphaned. Returns rows removed.
	PurgeOpportunities(ctx context.Context, now int64) (int64, error)

	// Close releases the store's resources.
	Close() error
}

// ReviewResult is an advisory second opinion on a classified record. It
// never overrides the rule engine; the suggestion is kept next to the
// record for manual triage.
type ReviewResult struct {
	Category   Category
	Confidence float64
	Rationale  string
	ModelUsed  string
}

// Reviewer produces advisory category suggestions for records the rule
// engine could not place (OTHER at the confidence floor).
type Reviewer interface {
	Review(ctx context.Context, rec *Record) (*ReviewResult, error)
}
