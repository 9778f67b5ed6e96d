package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"
)

// canonicalLookback bounds how far back a bump searches its thread for
// the canonical prior message.
const canonicalLookback = 60 * 24 * time.Hour

// bumpConfidenceDiscount is applied to the canonical record's confidence
// when a bump inherits it: a bump usually repeats no details, so the
// inherited classification is slightly less certain.
const bumpConfidenceDiscount = 0.9

// retentionMaxAge is the default horizon for the retention sweep.
const retentionMaxAge = 150 * 24 * time.Hour

// IngestResult reports what happened to one ingested message.
type IngestResult struct {
	ID      string
	Deduped bool
}

// IngestService coordinates classification and persistence: identity
// hashing, dedup, bump resolution against the thread's canonical record,
// record insert and the derived opportunity upsert.
type IngestService struct {
	store      EmailStore
	classifier *Classifier
	reviewer   Reviewer // nil disables advisory review
	logger     *zap.Logger
	now        func() time.Time

	maxAge    time.Duration
	sweepFreq time.Duration
	stopCh    chan struct{}
}

// NewIngestService creates the ingestion coordinator. reviewer may be nil.
func NewIngestService(store EmailStore, classifier *Classifier, reviewer Reviewer, logger *zap.Logger) *IngestService {
	return &IngestService{
		store:      store,
		classifier: classifier,
		reviewer:   reviewer,
		logger:     logger,
		now:        time.Now,
		maxAge:     retentionMaxAge,
		sweepFreq:  6 * time.Hour,
		stopCh:     make(chan struct{}),
	}
}

// SetRetention overrides the sweep horizon and frequency.
func (s *IngestService) SetRetention(maxAge, sweepFreq time.Duration) {
	s.maxAge = maxAge
	s.sweepFreq = sweepFreq
}

// MessageID computes the stable identity hash for a message: SHA-256 of
// the provider message id when present, else of the listserv, send time,
// thread key and the first 256 bytes of the stripped body. Identical
// input always maps to the same id.
func MessageID(m *Message, threadKey, strippedBody string) string {
	if m.ProviderMessageID != "" {
		return sha256Hex(m.ProviderMessageID)
	}
	prefix := strippedBody
	if len(prefix) > 256 {
		prefix = prefix[:256]
	}
	return sha256Hex(fmt.Sprintf("%s|%d|%s|%s", m.Listserv, m.SentAt, threadKey, prefix))
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// IngestOne classifies and persists a single message, enforcing
// at-most-once storage per identity. Replaying the same message reports
// Deduped and touches the existing row's update timestamp.
func (s *IngestService) IngestOne(ctx context.Context, m *Message) (*IngestResult, error) {
	bodyText := StripQuotedReply(m.BodyText)
	threadKey := MakeThreadKey(m.Subject)
	id := MessageID(m, threadKey, bodyText)
	createdAt := s.now().Unix()

	if _, err := s.store.Get(ctx, id); err == nil {
		if err := s.store.Touch(ctx, id, createdAt); err != nil {
			s.logger.Warn("Failed to touch deduped record", zap.String("id", id), zap.Error(err))
		}
		return &IngestResult{ID: id, Deduped: true}, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	bump := DetectBump(m.Subject, bodyText)
	base := s.classifier.Classify(m.Subject, bodyText)

	category := base.Category
	tags := base.Tags
	confidence := base.Confidence
	reasons := append([]string(nil), base.Reasons...)
	canonicalID := ""

	if bump.IsBump {
		tags = appendUnique(tags, TagBump)
		reasons = append(reasons, bump.Reasons...)

		canonical, err := s.resolveCanonical(ctx, threadKey, m.SentAt)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("canonical lookup: %w", err)
		}
		if canonical != nil {
			canonicalID = canonical.ID

			noNewInfo := category == CategoryOther ||
				(len(tags) == 1 && tags[0] == TagBump)
			if noNewInfo && canonical.Category != "" {
				category = canonical.Category
				tags = appendUnique(append([]string(nil), canonical.Tags...), TagBump)
				if d := canonical.Confidence * bumpConfidenceDiscount; d > confidence {
					confidence = d
				}
				reasons = append(reasons, "bump resolved: copied canonical category/tags")
			}
		}
	}

	rec := &Record{
		ID:                id,
		ProviderMessageID: m.ProviderMessageID,
		Source:            m.Source,
		Listserv:          m.Listserv,
		FromEmail:         m.FromEmail,
		FromName:          m.FromName,
		ReplyTo:           m.ReplyTo,
		ToEmails:          m.ToEmails,
		Subject:           m.Subject,
		BodyText:          bodyText,
		BodyHTML:          m.BodyHTML,
		SentAt:            m.SentAt,
		Category:          category,
		Tags:              tags,
		Confidence:        confidence,
		Reasons:           reasons,
		IsBump:            bump.IsBump,
		ThreadKey:         threadKey,
		CanonicalID:       canonicalID,
		Dates:             base.Dates,
		Contacts:          base.Contacts,
		GrantStatus:       base.GrantStatus,
		GrantDeadlineAt:   base.GrantDeadlineAt,
		Eligibility:       base.Eligibility,
		Scope:             base.Scope,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}

	s.review(ctx, rec)

	err := retry.Do(
		func() error { return s.store.Insert(ctx, rec) },
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !errors.Is(err, ErrDuplicate) }),
	)
	if errors.Is(err, ErrDuplicate) {
		// lost the insert race to a concurrent replay
		if terr := s.store.Touch(ctx, id, createdAt); terr != nil {
			s.logger.Warn("Failed to touch deduped record", zap.String("id", id), zap.Error(terr))
		}
		return &IngestResult{ID: id, Deduped: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}

	if category == CategoryGrant {
		opp := &Opportunity{
			ID:          id,
			EmailID:     id,
			Title:       m.Subject,
			Status:      orUnclear(base.GrantStatus),
			DeadlineAt:  base.GrantDeadlineAt,
			Eligibility: orUnclear(base.Eligibility),
			Scope:       orUnclear(base.Scope),
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}
		if err := s.store.UpsertOpportunity(ctx, opp); err != nil {
			return nil, fmt.Errorf("upsert opportunity: %w", err)
		}
	}

	s.logger.Debug("Ingested message",
		zap.String("id", id),
		zap.String("category", string(category)),
		zap.Float64("confidence", confidence),
		zap.Bool("is_bump", bump.IsBump))

	return &IngestResult{ID: id, Deduped: false}, nil
}

// resolveCanonical finds the thread's canonical prior message: the most
// recent non-DO_NOT_CARE record with the same thread key sent within the
// lookback window and strictly before sentAt.
func (s *IngestService) resolveCanonical(ctx context.Context, threadKey string, sentAt int64) (*Record, error) {
	if threadKey == "" {
		return nil, ErrNotFound
	}
	minSentAt := sentAt - int64(canonicalLookback.Seconds())
	return s.store.LatestByThreadKey(ctx, threadKey, minSentAt, sentAt)
}

// review asks the advisory reviewer for a second opinion on records the
// rule engine left at OTHER with floor confidence. The suggestion is
// stored as a note; category and tags stay as classified.
func (s *IngestService) review(ctx context.Context, rec *Record) {
	if s.reviewer == nil {
		return
	}
	if rec.Category != CategoryOther || rec.Confidence > confidenceFloor {
		return
	}
	res, err := s.reviewer.Review(ctx, rec)
	if err != nil {
		s.logger.Warn("Advisory review failed", zap.String("id", rec.ID), zap.Error(err))
		return
	}
	rec.ReviewNote = fmt.Sprintf("advisory %s suggests %s (%.2f): %s",
		res.ModelUsed, res.Category, res.Confidence, res.Rationale)
	s.logger.Info("Advisory review",
		zap.String("id", rec.ID),
		zap.String("suggested", string(res.Category)),
		zap.Float64("confidence", res.Confidence))
}

// Sweep applies the retention rules: records older than the horizon are
// removed, and opportunities that are closed, past deadline or orphaned
// are purged.
func (s *IngestService) Sweep(ctx context.Context) error {
	now := s.now().Unix()
	cutoff := now - int64(s.maxAge.Seconds())

	removed, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete old records: %w", err)
	}

	purged, err := s.store.PurgeOpportunities(ctx, now)
	if err != nil {
		return fmt.Errorf("purge opportunities: %w", err)
	}

	s.logger.Info("Retention sweep complete",
		zap.Int64("records_removed", removed),
		zap.Int64("opportunities_purged", purged))
	return nil
}

// StartSweeper runs the retention sweep on a fixed schedule until Stop.
func (s *IngestService) StartSweeper() {
	go func() {
		ticker := time.NewTicker(s.sweepFreq)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Sweep(context.Background()); err != nil {
					s.logger.Error("Retention sweep failed", zap.Error(err))
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop halts the background sweeper.
func (s *IngestService) Stop() {
	close(s.stopCh)
}

func appendUnique(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

func orUnclear(v string) string {
	if v == "" {
		return "unclear"
	}
	return v
}
