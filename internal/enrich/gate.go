package enrich

import "context"

// AlertAction is the gate's verdict for one enriched ticket.
type AlertAction string

const (
	AlertSend     AlertAction = "send"
	AlertSuppress AlertAction = "suppress"
)

// AlertPayload is the formatted notification handed to a Deliverer. The gate
// builds it; delivery is someone else's job.
type AlertPayload struct {
	TicketID         string   `json:"ticket_id"`
	TicketNumber     int      `json:"ticket_number"`
	Subject          string   `json:"subject"`
	Intent           Intent   `json:"intent"`
	Severity         Severity `json:"severity"`
	Summary          string   `json:"summary"`
	RootCause        string   `json:"root_cause,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Platform         string   `json:"platform,omitempty"`
	EscalationReason string   `json:"escalation_reason,omitempty"`
}

// AlertDecision pairs the verdict with the payload that would be (or was)
// delivered.
type AlertDecision struct {
	Action  AlertAction  `json:"action"`
	Reason  string       `json:"reason,omitempty"`
	Payload AlertPayload `json:"payload"`
}

// Deliverer ships an alert payload to its destination. Failures are reported
// but never roll back the enrichment write.
type Deliverer interface {
	Deliver(ctx context.Context, p *AlertPayload) error
}

// Special payload tags for intents that need operator attention regardless
// of severity.
const (
	tagDeleteRequest = "urgent:delete_request"
	tagEmptyTicket   = "empty_ticket"
	tagUnreadable    = "unreadable"
)

// DecideAlert decides whether an enriched ticket should notify anyone.
// A ticket the agent already replied to is always suppressed; that is the
// sole spam-prevention rule and it outranks every severity level.
func DecideAlert(r *Record, agentReplied bool) AlertDecision {
	payload := AlertPayload{
		TicketID:         r.TicketID,
		TicketNumber:     r.TicketNumber,
		Subject:          r.Subject,
		Intent:           r.Intent,
		Severity:         r.Severity,
		Summary:          r.Summary,
		RootCause:        r.RootCause,
		Tags:             append([]string(nil), r.SuggestedTags...),
		Platform:         r.Entities.Platform,
		EscalationReason: r.EscalationReason,
	}

	switch r.Intent {
	case IntentDeleteAccount:
		payload.Tags = append(payload.Tags, tagDeleteRequest)
	case IntentIncompleteTicket:
		payload.Tags = append(payload.Tags, tagEmptyTicket)
	case IntentUnreadable:
		payload.Tags = append(payload.Tags, tagUnreadable)
	}

	if agentReplied {
		return AlertDecision{Action: AlertSuppress, Reason: "agent already replied", Payload: payload}
	}
	return AlertDecision{Action: AlertSend, Payload: payload}
}
