// Package ticketapi exposes the enrichment pipeline over HTTP.
package ticketapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/deskwatch/internal/enrich"
	"github.com/linnemanlabs/deskwatch/internal/ticket"
)

// EnrichService defines the business operations ticketapi needs.
type EnrichService interface {
	Enrich(ctx context.Context, t *ticket.Ticket) (*enrich.Record, error)
	GetEnriched(ctx context.Context, ticketID string) (*enrich.Record, bool, error)
	QueryEnriched(ctx context.Context, q enrich.Query) ([]*enrich.Record, error)
	SubmitFeedback(ctx context.Context, ticketID string, action enrich.FeedbackAction, payload enrich.FeedbackPayload) (*enrich.FeedbackRecord, error)
	RecentCorrections(ctx context.Context, n int) ([]*enrich.FeedbackRecord, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    EnrichService
	auth   func(http.Handler) http.Handler
	now    func() time.Time
}

// New creates a new API handler. auth guards the mutating feedback endpoint.
func New(logger log.Logger, svc EnrichService, auth func(http.Handler) http.Handler) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("enrich service is required"))
	}
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}
	return &API{
		logger: logger,
		svc:    svc,
		auth:   auth,
		now:    time.Now,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tickets", a.handleIngestTicket)
		r.Get("/enriched", a.handleQueryEnriched)
		r.Get("/enriched/{ticketID}", a.handleGetEnriched)
		r.With(a.auth).Post("/tickets/{ticketID}/feedback", a.handleSubmitFeedback)
		r.Get("/feedback/corrections", a.handleRecentCorrections)
	})
}

func (a *API) handleGetEnriched(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("deskwatch.ticket.id", ticketID))

	rec, ok, err := a.svc.GetEnriched(r.Context(), ticketID)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get enriched record", "ticket_id", ticketID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("deskwatch.ticket.intent", string(rec.Intent)))

	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with encode errors here
	_ = json.NewEncoder(w).Encode(v)
}
