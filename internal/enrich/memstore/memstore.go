// Package memstore provides an in-memory implementation of enrich.Store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linnemanlabs/deskwatch/internal/enrich"
)

type feedbackKey struct {
	ticketID string
	action   enrich.FeedbackAction
}

// Store holds enriched records and feedback in memory. Suitable for dev and
// tests; everything is guarded by one mutex and returned as copies.
type Store struct {
	mu       sync.RWMutex
	records  map[string]*enrich.Record // ticket ID -> record
	feedback map[feedbackKey]*enrich.FeedbackRecord
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		records:  make(map[string]*enrich.Record),
		feedback: make(map[feedbackKey]*enrich.FeedbackRecord),
	}
}

// GetEnriched retrieves a record by ticket ID. Returns a copy.
func (s *Store) GetEnriched(_ context.Context, ticketID string) (*enrich.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[ticketID]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	cp.SuggestedTags = append([]string(nil), r.SuggestedTags...)
	return &cp, true, nil
}

// PutEnriched stores a copy of the record, replacing any prior version
// (last write wins).
func (s *Store) PutEnriched(_ context.Context, r *enrich.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	cp.SuggestedTags = append([]string(nil), r.SuggestedTags...)
	s.records[r.TicketID] = &cp
	return nil
}

// QueryEnriched returns records enriched at or after q.Since, ordered by
// ticket number descending, paginated by limit/offset.
func (s *Store) QueryEnriched(_ context.Context, q enrich.Query) ([]*enrich.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*enrich.Record, 0, len(s.records))
	for _, r := range s.records {
		if !q.Since.IsZero() && r.EnrichedAt.Before(q.Since) {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].TicketNumber > matched[j].TicketNumber
	})

	if q.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]*enrich.Record, len(matched))
	for i, r := range matched {
		cp := *r
		cp.SuggestedTags = append([]string(nil), r.SuggestedTags...)
		out[i] = &cp
	}
	return out, nil
}

// CountCluster counts records sharing key enriched at or after since.
func (s *Store) CountCluster(_ context.Context, key string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.records {
		if r.ClusterKey == key && !r.EnrichedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// UpsertFeedback stores a copy of the feedback record keyed by
// (ticket ID, action); a resubmission replaces the prior payload.
func (s *Store) UpsertFeedback(_ context.Context, fb *enrich.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *fb
	s.feedback[feedbackKey{ticketID: fb.TicketID, action: fb.Action}] = &cp
	return nil
}

// RecentCorrections returns up to n tag_correction records, newest first.
func (s *Store) RecentCorrections(_ context.Context, n int) ([]*enrich.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*enrich.FeedbackRecord
	for k, fb := range s.feedback {
		if k.action != enrich.ActionTagCorrection {
			continue
		}
		cp := *fb
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// LowConfidenceSince returns up to limit low-confidence records enriched at
// or after since, oldest first.
func (s *Store) LowConfidenceSince(_ context.Context, since time.Time, limit int) ([]*enrich.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*enrich.Record
	for _, r := range s.records {
		if !r.LowConfidence || r.EnrichedAt.Before(since) {
			continue
		}
		cp := *r
		cp.SuggestedTags = append([]string(nil), r.SuggestedTags...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EnrichedAt.Before(out[j].EnrichedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
