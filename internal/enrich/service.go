package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/deskwatch/internal/ticket"
)

// putRetries bounds how often a failed store write is retried before the
// failure is surfaced.
const putRetries = 3

// Service is the business boundary for ticket enrichment. It composes the
// preprocessor, cluster key generator, classifier, severity engine, alert
// gate, and feedback loop behind a small API.
type Service struct {
	store      Store
	classifier *Classifier
	rules      Rules
	deliverer  Deliverer
	logger     log.Logger
	hooks      ServiceHooks
	subs       subscribers
	now        func() time.Time
}

// NewService creates the enrichment service. A nil deliverer disables alert
// delivery; gate decisions are still computed and counted.
func NewService(store Store, classifier *Classifier, rules Rules, deliverer Deliverer, logger log.Logger, hooks ServiceHooks) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:      store,
		classifier: classifier,
		rules:      rules,
		deliverer:  deliverer,
		logger:     logger,
		hooks:      hooks,
		now:        time.Now,
	}
}

// Subscribe registers a callback for enrichment events. Callbacks must be
// cheap; they run synchronously on the enriching goroutine.
func (s *Service) Subscribe(fn func(Event)) {
	s.subs.add(fn)
}

// Enrich runs the full pipeline for one ticket and persists the result.
// It always produces a valid Record; classifier failures degrade to the
// rule-only path rather than erroring. A non-nil error is only returned for
// ticket validation failures and for persistence failures that survived the
// retry budget (in which case the computed record is returned alongside it).
func (s *Service) Enrich(ctx context.Context, t *ticket.Ticket) (*Record, error) {
	if err := t.Validate(); err != nil {
		return nil, &ValidationError{Reason: err}
	}

	start := s.now()
	L := s.logger.With("ticket_id", t.ID, "ticket_number", t.Number)

	signal := ExtractSignal(t.Text())

	corrections, err := s.store.RecentCorrections(ctx, maxExamples)
	if err != nil {
		// Few-shot examples are an accuracy aid, not a prerequisite.
		L.Warn(ctx, "failed to load recent corrections", "error", err)
		corrections = nil
	}

	hash := contentHash(signal, corrections)
	existing, found, err := s.store.GetEnriched(ctx, t.ID)
	if err != nil {
		L.Warn(ctx, "failed to read cached enrichment", "error", err)
		found = false
	}
	if found && existing.ContentHash == hash {
		L.Info(ctx, "enrichment unchanged, using cached record")
		return existing, nil
	}

	rec := &Record{
		TicketID:     t.ID,
		TicketNumber: t.Number,
		Subject:      t.Subject,
		SignalText:   signal,
		ContentHash:  hash,
		EnrichedAt:   s.now(),
	}

	if intent, summary, short := shortCircuitIntent(signal); short {
		rec.Intent = intent
		rec.Summary = summary
		rec.Severity = SeverityLow
		rec.SuggestedTags = suggestedTags(intent, SeverityLow, nil)
		L.Info(ctx, "ticket short-circuited", "intent", intent, "signal_len", len(signal))
	} else {
		// Entities come from the raw text: the template lines the signal
		// stripper removes are exactly where platform and version live.
		s.classify(ctx, rec, signal, ExtractEntities(t.Text()), corrections, existing, found)
	}

	if err := s.putEnriched(ctx, rec); err != nil {
		L.Error(ctx, err, "failed to persist enrichment")
		return rec, err
	}

	if s.hooks.OnEnriched != nil {
		s.hooks.OnEnriched(string(rec.Intent), string(rec.Severity), s.now().Sub(start).Seconds(), rec.EscalationReason != "")
	}
	s.subs.publish(Event{Type: EventEnriched, TicketID: rec.TicketID, TicketNumber: rec.TicketNumber})

	s.alert(ctx, rec, t.AgentReplied)

	L.Info(ctx, "ticket enriched",
		"intent", rec.Intent,
		"severity", rec.Severity,
		"score", rec.SeverityScore,
		"cluster_key", rec.ClusterKey,
		"low_confidence", rec.LowConfidence,
	)
	return rec, nil
}

// classify fills in the non-short-circuited parts of a record:
// classification, cluster key, score, and resolved severity.
func (s *Service) classify(ctx context.Context, rec *Record, signal string, entities Entities, corrections []*FeedbackRecord, existing *Record, found bool) {
	cls := s.classifier.Classify(ctx, signal, correctionExamples(corrections))

	rec.Intent = cls.Intent
	rec.Summary = cls.Summary
	rec.RootCause = cls.RootCause
	rec.Entities = entities
	rec.LowConfidence = cls.LowConfidence
	rec.ClusterKey = ClusterKey(signal, entities)
	rec.SeverityScore = s.rules.ScoreText(signal)

	volume := 0
	if cls.Intent == IntentGameplayIssue {
		since := s.now().Add(-EscalationWindow)
		count, err := s.store.CountCluster(ctx, rec.ClusterKey, since)
		if err != nil {
			// Missing an escalation beats failing the pipeline; the next
			// ticket in the cluster gets another chance.
			s.logger.Warn(ctx, "cluster volume lookup failed", "cluster_key", rec.ClusterKey, "error", err)
		} else {
			if found && existing.ClusterKey == rec.ClusterKey && !existing.EnrichedAt.Before(since) {
				count-- // don't count this ticket's own prior record
			}
			volume = count + 1 // prior records plus the arriving ticket
		}
	}

	rec.Severity, rec.EscalationReason = ResolveSeverity(rec.Intent, rec.SeverityScore, volume)
	rec.SuggestedTags = suggestedTags(rec.Intent, rec.Severity, cls.Tags)
}

func (s *Service) alert(ctx context.Context, rec *Record, agentReplied bool) {
	decision := DecideAlert(rec, agentReplied)
	if s.hooks.OnAlert != nil {
		s.hooks.OnAlert(string(decision.Action))
	}
	if decision.Action != AlertSend || s.deliverer == nil {
		return
	}

	// Delivery is fire-and-forget: a Slack outage must not fail or delay
	// the enrichment write that already happened.
	payload := decision.Payload
	go func(ctx context.Context) {
		if err := s.deliverer.Deliver(ctx, &payload); err != nil {
			s.logger.Error(ctx, err, "alert delivery failed", "ticket_id", payload.TicketID)
		}
	}(context.WithoutCancel(ctx))
}

// FeedbackPayload carries the optional details of a feedback submission.
type FeedbackPayload struct {
	CorrectIntent   string `json:"correct_intent,omitempty"`
	CorrectSeverity string `json:"correct_severity,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// SubmitFeedback upserts a feedback record keyed by (ticketID, action). A
// tag_correction additionally patches the stored enrichment in place so the
// dashboard reflects the fix immediately; it never re-runs alerting and
// never alters past cluster-volume escalation decisions.
func (s *Service) SubmitFeedback(ctx context.Context, ticketID string, action FeedbackAction, payload FeedbackPayload) (*FeedbackRecord, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, &ValidationError{Reason: fmt.Errorf("ticket id is required")}
	}
	if _, err := ParseFeedbackAction(string(action)); err != nil {
		return nil, &ValidationError{Reason: err}
	}

	var correctIntent Intent
	var correctSeverity Severity
	if action == ActionTagCorrection {
		if payload.CorrectIntent == "" && payload.CorrectSeverity == "" {
			return nil, &ValidationError{Reason: fmt.Errorf("tag_correction needs a corrected intent or severity")}
		}
		var err error
		if payload.CorrectIntent != "" {
			if correctIntent, err = ParseIntent(payload.CorrectIntent); err != nil {
				return nil, &ValidationError{Reason: err}
			}
		}
		if payload.CorrectSeverity != "" {
			if correctSeverity, err = ParseSeverity(payload.CorrectSeverity); err != nil {
				return nil, &ValidationError{Reason: err}
			}
		}
	}

	rec, found, err := s.store.GetEnriched(ctx, ticketID)
	if err != nil {
		return nil, &PersistenceError{Op: "get enriched", Err: err}
	}

	fb := &FeedbackRecord{
		ID:              ulid.Make().String(),
		TicketID:        ticketID,
		Action:          action,
		CorrectIntent:   correctIntent,
		CorrectSeverity: correctSeverity,
		Notes:           payload.Notes,
		CreatedAt:       s.now(),
	}
	if found {
		fb.TicketText = rec.SignalText
	}

	if err := s.store.UpsertFeedback(ctx, fb); err != nil {
		return nil, &PersistenceError{Op: "upsert feedback", Err: err}
	}
	if s.hooks.OnFeedback != nil {
		s.hooks.OnFeedback(string(action))
	}

	if action == ActionTagCorrection && found {
		s.patchRecord(ctx, rec, correctIntent, correctSeverity)
	}

	return fb, nil
}

// patchRecord applies a correction to the stored enrichment. The severity
// engine re-runs so intent-forced overrides hold even against an explicit
// corrected severity; volume escalation is deliberately not re-evaluated.
func (s *Service) patchRecord(ctx context.Context, rec *Record, intent Intent, severity Severity) {
	if intent != "" {
		rec.Intent = intent
	}
	resolved, _ := ResolveSeverity(rec.Intent, rec.SeverityScore, 0)
	if severity != "" {
		resolved = severity
	}
	rec.Severity = clampToOverrides(rec.Intent, resolved)
	rec.LowConfidence = false
	rec.EscalationReason = ""
	rec.SuggestedTags = suggestedTags(rec.Intent, rec.Severity, freeformTags(rec.SuggestedTags))
	rec.EnrichedAt = s.now()

	if err := s.putEnriched(ctx, rec); err != nil {
		s.logger.Error(ctx, err, "failed to patch enrichment after correction", "ticket_id", rec.TicketID)
		return
	}
	s.subs.publish(Event{Type: EventCorrected, TicketID: rec.TicketID, TicketNumber: rec.TicketNumber})
}

// QueryEnriched returns a page of enriched records inside the window,
// ordered by ticket number descending.
func (s *Service) QueryEnriched(ctx context.Context, q Query) ([]*Record, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	recs, err := s.store.QueryEnriched(ctx, q)
	if err != nil {
		return nil, &PersistenceError{Op: "query enriched", Err: err}
	}
	return recs, nil
}

// GetEnriched returns the record for one ticket.
func (s *Service) GetEnriched(ctx context.Context, ticketID string) (*Record, bool, error) {
	rec, ok, err := s.store.GetEnriched(ctx, ticketID)
	if err != nil {
		return nil, false, &PersistenceError{Op: "get enriched", Err: err}
	}
	return rec, ok, nil
}

// RecentCorrections exposes the few-shot example feed for display.
func (s *Service) RecentCorrections(ctx context.Context, n int) ([]*FeedbackRecord, error) {
	if n <= 0 || n > 50 {
		n = maxExamples
	}
	fbs, err := s.store.RecentCorrections(ctx, n)
	if err != nil {
		return nil, &PersistenceError{Op: "recent corrections", Err: err}
	}
	return fbs, nil
}

// ReclassifyLowConfidence re-runs classification for low-confidence records
// enriched since the cutoff, using their stored signal text. Fresh
// corrections thereby improve past misclassifications without waiting for
// the ticket to change. Re-alerting is out of scope; only the record is
// updated. Returns how many records were reclassified.
func (s *Service) ReclassifyLowConfidence(ctx context.Context, since time.Time, limit int) (int, error) {
	recs, err := s.store.LowConfidenceSince(ctx, since, limit)
	if err != nil {
		return 0, &PersistenceError{Op: "low confidence scan", Err: err}
	}
	if len(recs) == 0 {
		return 0, nil
	}

	corrections, err := s.store.RecentCorrections(ctx, maxExamples)
	if err != nil {
		corrections = nil
	}

	var updated int
	for _, old := range recs {
		if ctx.Err() != nil {
			return updated, ctx.Err()
		}
		rec := &Record{
			TicketID:     old.TicketID,
			TicketNumber: old.TicketNumber,
			Subject:      old.Subject,
			SignalText:   old.SignalText,
			ContentHash:  contentHash(old.SignalText, corrections),
			EnrichedAt:   s.now(),
		}
		if intent, summary, short := shortCircuitIntent(old.SignalText); short {
			rec.Intent = intent
			rec.Summary = summary
			rec.Severity = SeverityLow
			rec.SuggestedTags = suggestedTags(intent, SeverityLow, nil)
		} else {
			// The raw ticket text is gone by now; the entities extracted at
			// ingest time are carried forward from the stored record.
			s.classify(ctx, rec, old.SignalText, old.Entities, corrections, old, true)
		}
		if rec.LowConfidence && rec.Intent == old.Intent {
			continue // provider still unavailable, nothing gained
		}
		if err := s.putEnriched(ctx, rec); err != nil {
			s.logger.Error(ctx, err, "failed to persist reclassification", "ticket_id", rec.TicketID)
			continue
		}
		s.subs.publish(Event{Type: EventEnriched, TicketID: rec.TicketID, TicketNumber: rec.TicketNumber})
		updated++
	}
	return updated, nil
}

// DecideAlert exposes the gate for callers that want a dry-run decision.
func (s *Service) DecideAlert(rec *Record, agentReplied bool) AlertDecision {
	return DecideAlert(rec, agentReplied)
}

// putEnriched writes a record with a bounded retry budget.
func (s *Service) putEnriched(ctx context.Context, rec *Record) error {
	var lastErr error
	for attempt := 0; attempt < putRetries; attempt++ {
		if attempt > 0 {
			if s.hooks.OnStoreRetry != nil {
				s.hooks.OnStoreRetry("put_enriched")
			}
			select {
			case <-ctx.Done():
				return &PersistenceError{Op: "put enriched", Err: ctx.Err()}
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
		if lastErr = s.store.PutEnriched(ctx, rec); lastErr == nil {
			return nil
		}
	}
	return &PersistenceError{Op: "put enriched", Err: lastErr}
}

// correctionExamples converts stored corrections into classifier examples,
// skipping records that carry no usable text or intent.
func correctionExamples(fbs []*FeedbackRecord) []Example {
	out := make([]Example, 0, len(fbs))
	for _, fb := range fbs {
		if fb.CorrectIntent == "" || fb.TicketText == "" {
			continue
		}
		out = append(out, Example{
			Text:     fb.TicketText,
			Intent:   fb.CorrectIntent,
			Severity: fb.CorrectSeverity,
			Notes:    fb.Notes,
		})
	}
	return out
}

// contentHash fingerprints the inputs that determine an enrichment: the
// signal text and the identity of the corrections that would seed the
// prompt. Identical hash means re-running the pipeline is pointless.
func contentHash(signal string, corrections []*FeedbackRecord) string {
	h := sha256.New()
	h.Write([]byte(signal))
	for _, fb := range corrections {
		h.Write([]byte{0})
		h.Write([]byte(fb.ID))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// freeformTags strips the reserved intent:/sev: tags so they can be rebuilt.
func freeformTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if strings.HasPrefix(t, "intent:") || strings.HasPrefix(t, "sev:") {
			continue
		}
		out = append(out, t)
	}
	return out
}
