package ticketapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/deskwatch/internal/enrich"
	"github.com/linnemanlabs/deskwatch/internal/ticket"
)

// defaultQueryWindow bounds GET /enriched when no hours param is given.
const defaultQueryWindow = 24 * time.Hour

func (a *API) handleIngestTicket(w http.ResponseWriter, r *http.Request) {
	var t ticket.Ticket
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("deskwatch.ticket.id", t.ID))

	rec, err := a.svc.Enrich(r.Context(), &t)
	if err != nil {
		if enrich.IsValidation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		a.logger.Error(r.Context(), err, "failed to enrich ticket", "ticket_id", t.ID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span.SetAttributes(
		attribute.String("deskwatch.ticket.intent", string(rec.Intent)),
		attribute.String("deskwatch.ticket.severity", string(rec.Severity)),
	)

	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleQueryEnriched(w http.ResponseWriter, r *http.Request) {
	q := enrich.Query{Since: a.now().Add(-defaultQueryWindow)}

	if raw := r.URL.Query().Get("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 || hours > 24*30 {
			http.Error(w, `{"error":"invalid hours"}`, http.StatusBadRequest)
			return
		}
		q.Since = a.now().Add(-time.Duration(hours) * time.Hour)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		q.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			http.Error(w, `{"error":"invalid offset"}`, http.StatusBadRequest)
			return
		}
		q.Offset = offset
	}

	recs, err := a.svc.QueryEnriched(r.Context(), q)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to query enriched records")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []*enrich.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": recs,
		"count":   len(recs),
	})
}

type feedbackRequest struct {
	Action string `json:"action"`
	enrich.FeedbackPayload
}

func (a *API) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("deskwatch.ticket.id", ticketID),
		attribute.String("deskwatch.feedback.action", req.Action),
	)

	fb, err := a.svc.SubmitFeedback(r.Context(), ticketID, enrich.FeedbackAction(req.Action), req.FeedbackPayload)
	if err != nil {
		if enrich.IsValidation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		var pe *enrich.PersistenceError
		if errors.As(err, &pe) {
			a.logger.Error(r.Context(), err, "feedback persistence failed", "ticket_id", ticketID)
			http.Error(w, `{"error":"storage unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		a.logger.Error(r.Context(), err, "failed to submit feedback", "ticket_id", ticketID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, fb)
}

func (a *API) handleRecentCorrections(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, `{"error":"invalid n"}`, http.StatusBadRequest)
			return
		}
		n = parsed
	}

	fbs, err := a.svc.RecentCorrections(r.Context(), n)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list corrections")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if fbs == nil {
		fbs = []*enrich.FeedbackRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"corrections": fbs,
		"count":       len(fbs),
	})
}
