// Package pgstore provides a PostgreSQL implementation of enrich.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/deskwatch/internal/enrich"
)

var tracer = otel.Tracer("github.com/linnemanlabs/deskwatch/internal/enrich/pgstore")

//go:embed schema.sql
var schema string

// Store persists enriched records and feedback in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const enrichedColumns = `ticket_id, ticket_number, subject, intent, summary, root_cause,
	platform, app_version, level, severity_score, severity, cluster_key,
	suggested_tags, escalation_reason, low_confidence, signal_text, content_hash, enriched_at`

// GetEnriched retrieves a record by ticket ID.
func (s *Store) GetEnriched(ctx context.Context, ticketID string) (*enrich.Record, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetEnriched", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + enrichedColumns + ` FROM enriched_tickets WHERE ticket_id = $1`
	r, err := scanRecord(s.pool.QueryRow(ctx, query, ticketID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// PutEnriched inserts or replaces a record (last write wins on ticket_id).
func (s *Store) PutEnriched(ctx context.Context, r *enrich.Record) error {
	ctx, span := tracer.Start(ctx, "pgstore.PutEnriched", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	tagsJSON, err := json.Marshal(r.SuggestedTags)
	if err != nil {
		return fmt.Errorf("marshal suggested tags: %w", err)
	}

	query := `INSERT INTO enriched_tickets (
		ticket_id, ticket_number, subject, intent, summary, root_cause,
		platform, app_version, level, severity_score, severity, cluster_key,
		suggested_tags, escalation_reason, low_confidence, signal_text, content_hash, enriched_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	ON CONFLICT (ticket_id) DO UPDATE SET
		ticket_number     = EXCLUDED.ticket_number,
		subject           = EXCLUDED.subject,
		intent            = EXCLUDED.intent,
		summary           = EXCLUDED.summary,
		root_cause        = EXCLUDED.root_cause,
		platform          = EXCLUDED.platform,
		app_version       = EXCLUDED.app_version,
		level             = EXCLUDED.level,
		severity_score    = EXCLUDED.severity_score,
		severity          = EXCLUDED.severity,
		cluster_key       = EXCLUDED.cluster_key,
		suggested_tags    = EXCLUDED.suggested_tags,
		escalation_reason = EXCLUDED.escalation_reason,
		low_confidence    = EXCLUDED.low_confidence,
		signal_text       = EXCLUDED.signal_text,
		content_hash      = EXCLUDED.content_hash,
		enriched_at       = EXCLUDED.enriched_at`

	_, err = s.pool.Exec(ctx, query,
		r.TicketID, r.TicketNumber, r.Subject, string(r.Intent), r.Summary, r.RootCause,
		r.Entities.Platform, r.Entities.AppVersion, r.Entities.Level, r.SeverityScore,
		string(r.Severity), r.ClusterKey, tagsJSON, r.EscalationReason, r.LowConfidence,
		r.SignalText, r.ContentHash, r.EnrichedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert enriched: %w", err)
	}
	return nil
}

// QueryEnriched returns records enriched at or after q.Since, ordered by
// ticket number descending.
func (s *Store) QueryEnriched(ctx context.Context, q enrich.Query) ([]*enrich.Record, error) {
	ctx, span := tracer.Start(ctx, "pgstore.QueryEnriched", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + enrichedColumns + ` FROM enriched_tickets
		WHERE enriched_at >= $1
		ORDER BY ticket_number DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, q.Since, q.Limit, q.Offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query enriched: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// CountCluster counts records sharing key enriched at or after since. The
// count is a live read against the shared table so concurrent workers see a
// consistent snapshot rather than a process-local counter.
func (s *Store) CountCluster(ctx context.Context, key string, since time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "pgstore.CountCluster", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM enriched_tickets WHERE cluster_key = $1 AND enriched_at >= $2`,
		key, since,
	).Scan(&n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("count cluster: %w", err)
	}
	return n, nil
}

// UpsertFeedback inserts or replaces a feedback record. Atomicity per
// (ticket_id, action) comes from the primary key plus ON CONFLICT.
func (s *Store) UpsertFeedback(ctx context.Context, fb *enrich.FeedbackRecord) error {
	ctx, span := tracer.Start(ctx, "pgstore.UpsertFeedback", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	query := `INSERT INTO ticket_feedback (
		ticket_id, action, id, correct_intent, correct_severity, notes, ticket_text, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	ON CONFLICT (ticket_id, action) DO UPDATE SET
		id               = EXCLUDED.id,
		correct_intent   = EXCLUDED.correct_intent,
		correct_severity = EXCLUDED.correct_severity,
		notes            = EXCLUDED.notes,
		ticket_text      = EXCLUDED.ticket_text,
		created_at       = EXCLUDED.created_at`

	_, err := s.pool.Exec(ctx, query,
		fb.TicketID, string(fb.Action), fb.ID, string(fb.CorrectIntent),
		string(fb.CorrectSeverity), fb.Notes, fb.TicketText, fb.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert feedback: %w", err)
	}
	return nil
}

// RecentCorrections returns up to n tag_correction records, newest first.
func (s *Store) RecentCorrections(ctx context.Context, n int) ([]*enrich.FeedbackRecord, error) {
	ctx, span := tracer.Start(ctx, "pgstore.RecentCorrections", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT ticket_id, action, id, correct_intent, correct_severity, notes, ticket_text, created_at
		 FROM ticket_feedback WHERE action = $1 ORDER BY created_at DESC LIMIT $2`,
		string(enrich.ActionTagCorrection), n,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query corrections: %w", err)
	}
	defer rows.Close()

	var out []*enrich.FeedbackRecord
	for rows.Next() {
		var fb enrich.FeedbackRecord
		var action, intent, severity string
		if err := rows.Scan(&fb.TicketID, &action, &fb.ID, &intent, &severity, &fb.Notes, &fb.TicketText, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		fb.Action = enrich.FeedbackAction(action)
		fb.CorrectIntent = enrich.Intent(intent)
		fb.CorrectSeverity = enrich.Severity(severity)
		out = append(out, &fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}

// LowConfidenceSince returns up to limit low-confidence records enriched at
// or after since, oldest first.
func (s *Store) LowConfidenceSince(ctx context.Context, since time.Time, limit int) ([]*enrich.Record, error) {
	ctx, span := tracer.Start(ctx, "pgstore.LowConfidenceSince", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + enrichedColumns + ` FROM enriched_tickets
		WHERE low_confidence AND enriched_at >= $1
		ORDER BY enriched_at ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, since, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query low confidence: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]*enrich.Record, error) {
	var out []*enrich.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// scanRecord scans one row into a Record. Returns (nil, nil) when no row is
// found.
func scanRecord(row pgx.Row) (*enrich.Record, error) {
	var (
		r        enrich.Record
		intent   string
		severity string
		level    *int
		tagsJSON []byte
	)

	err := row.Scan(
		&r.TicketID, &r.TicketNumber, &r.Subject, &intent, &r.Summary, &r.RootCause,
		&r.Entities.Platform, &r.Entities.AppVersion, &level, &r.SeverityScore, &severity,
		&r.ClusterKey, &tagsJSON, &r.EscalationReason, &r.LowConfidence,
		&r.SignalText, &r.ContentHash, &r.EnrichedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Intent = enrich.Intent(intent)
	r.Severity = enrich.Severity(severity)
	r.Entities.Level = level

	if err := json.Unmarshal(tagsJSON, &r.SuggestedTags); err != nil {
		return nil, fmt.Errorf("unmarshal suggested tags: %w", err)
	}
	return &r, nil
}
