package enrich

import (
	"context"
	"time"
)

// Store is the persistence boundary for enriched records and feedback.
//
// Implementations must provide:
//   - last-write-wins upsert semantics for PutEnriched keyed by ticket ID
//   - atomic upsert for UpsertFeedback keyed by (ticket ID, action); the
//     uniqueness of that pair is a correctness requirement, not an index
//   - CountCluster reads against the shared persisted record set so that
//     concurrent workers observe each other's writes
type Store interface {
	GetEnriched(ctx context.Context, ticketID string) (*Record, bool, error)
	PutEnriched(ctx context.Context, r *Record) error
	QueryEnriched(ctx context.Context, q Query) ([]*Record, error)

	// CountCluster returns how many enriched records share key with
	// EnrichedAt at or after since.
	CountCluster(ctx context.Context, key string, since time.Time) (int, error)

	UpsertFeedback(ctx context.Context, fb *FeedbackRecord) error

	// RecentCorrections returns up to n tag_correction records across all
	// tickets, newest first.
	RecentCorrections(ctx context.Context, n int) ([]*FeedbackRecord, error)

	// LowConfidenceSince returns up to limit low-confidence records with
	// EnrichedAt at or after since, oldest first. Used by the background
	// sweep to retry records once better few-shot examples exist.
	LowConfidenceSince(ctx context.Context, since time.Time, limit int) ([]*Record, error)
}
