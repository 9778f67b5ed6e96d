package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mikey/listserv-triage/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory EmailStore for development and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	records       map[string]*core.Record
	opportunities map[string]*core.Opportunity
	logger        *zap.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		records:       make(map[string]*core.Record),
		opportunities: make(map[string]*core.Opportunity),
		logger:        logger,
	}
}

// Get returns the record with the given id.
func (s *MemoryStore) Get(_ context.Context, id string) (*core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// Insert stores a new record; duplicate ids are rejected.
func (s *MemoryStore) Insert(_ context.Context, rec *core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return core.ErrDuplicate
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

// Touch bumps updated_at on an existing record.
func (s *MemoryStore) Touch(_ context.Context, id string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return core.ErrNotFound
	}
	rec.UpdatedAt = at
	return nil
}

// LatestByThreadKey returns the newest non-DO_NOT_CARE record in the
// thread with sentAt in [minSentAt, before).
func (s *MemoryStore) LatestByThreadKey(_ context.Context, threadKey string, minSentAt, before int64) (*core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *core.Record
	for _, rec := range s.records {
		if rec.ThreadKey != threadKey || rec.Category == core.CategoryDoNotCare {
			continue
		}
		if rec.SentAt < minSentAt || rec.SentAt >= before {
			continue
		}
		if best == nil || rec.SentAt > best.SentAt {
			best = rec
		}
	}
	if best == nil {
		return nil, core.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

// Search returns records matching the query, newest first.
func (s *MemoryStore) Search(_ context.Context, q core.Query) ([]core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []core.Record
	for _, rec := range s.records {
		if !matches(rec, q) {
			continue
		}
		matched = append(matched, *rec)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SentAt > matched[j].SentAt
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func matches(rec *core.Record, q core.Query) bool {
	if !q.IncludeDoNotCare && rec.Category == core.CategoryDoNotCare {
		return false
	}
	if q.Category != "" && string(rec.Category) != q.Category {
		return false
	}
	if q.Since != 0 && rec.SentAt < q.Since {
		return false
	}
	if q.Until != 0 && rec.SentAt > q.Until {
		return false
	}
	if q.Text != "" &&
		!strings.Contains(rec.Subject, q.Text) &&
		!strings.Contains(rec.BodyText, q.Text) {
		return false
	}
	if q.Tag != "" && !rec.HasTag(q.Tag) {
		return false
	}
	return true
}

// DeleteOlderThan removes records sent before the cutoff.
func (s *MemoryStore) DeleteOlderThan(_ context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, rec := range s.records {
		if rec.SentAt < cutoff {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

// UpsertOpportunity inserts or overwrites the opportunity for its email.
func (s *MemoryStore) UpsertOpportunity(_ context.Context, opp *core.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *opp
	if existing, ok := s.opportunities[opp.EmailID]; ok {
		cp.CreatedAt = existing.CreatedAt
	}
	s.opportunities[opp.EmailID] = &cp
	return nil
}

// GetOpportunity returns the opportunity owned by the given email id.
func (s *MemoryStore) GetOpportunity(_ context.Context, emailID string) (*core.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opp, ok := s.opportunities[emailID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *opp
	return &cp, nil
}

// PurgeOpportunities removes opportunities that are closed, past their
// deadline, or whose owning record is gone.
func (s *MemoryStore) PurgeOpportunities(_ context.Context, now int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, opp := range s.opportunities {
		_, hasOwner := s.records[opp.EmailID]
		stale := opp.Status == core.GrantClosed ||
			(opp.DeadlineAt != 0 && opp.DeadlineAt < now) ||
			!hasOwner
		if stale {
			delete(s.opportunities, id)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
