package enrich

import (
	"fmt"
	"strings"
	"time"
)

// Intent is the closed set of ticket classifications. Adding a value here
// forces the severity engine's exhaustive switch to handle it.
type Intent string

const (
	IntentBugReport     Intent = "bug_report"
	IntentCrashReport   Intent = "crash_report"
	IntentBillingIssue  Intent = "billing_issue"
	IntentDeleteAccount Intent = "delete_account"
	IntentLostProgress  Intent = "lost_progress"
	IntentFeedback      Intent = "feedback"
	IntentQuestion      Intent = "question"
	IntentGameplayIssue Intent = "gameplay_issue"

	// Preprocessor-only intents. The classifier never emits these; they are
	// assigned before the LLM is consulted and pin severity to low.
	IntentIncompleteTicket Intent = "incomplete_ticket"
	IntentUnreadable       Intent = "unreadable"
)

// Intents lists every valid intent value.
var Intents = []Intent{
	IntentBugReport,
	IntentCrashReport,
	IntentBillingIssue,
	IntentDeleteAccount,
	IntentLostProgress,
	IntentFeedback,
	IntentQuestion,
	IntentGameplayIssue,
	IntentIncompleteTicket,
	IntentUnreadable,
}

// ParseIntent validates a raw string against the closed enumeration.
func ParseIntent(s string) (Intent, error) {
	for _, in := range Intents {
		if s == string(in) {
			return in, nil
		}
	}
	return "", fmt.Errorf("unknown intent %q", s)
}

// ClassifiableIntents are the intents the classifier may return. The two
// preprocessor-only intents are excluded.
func ClassifiableIntents() []Intent {
	out := make([]Intent, 0, len(Intents)-2)
	for _, in := range Intents {
		if in == IntentIncompleteTicket || in == IntentUnreadable {
			continue
		}
		out = append(out, in)
	}
	return out
}

// Severity is the three-level bucket derived from score and overrides.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders buckets for escalation comparisons: low < medium < high.
func (s Severity) Rank() int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	default:
		return 0
	}
}

// ParseSeverity validates a raw severity string.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return Severity(s), nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

func maxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Entities are the structured fields extracted from ticket text. All are
// optional; Level is a pointer so 0 stays distinguishable from absent.
type Entities struct {
	Platform   string `json:"platform,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
	Level      *int   `json:"level,omitempty"`
}

// Record is the enrichment produced for one ticket. Reprocessing overwrites
// it under a last-write-wins policy.
type Record struct {
	TicketID         string    `json:"ticket_id"`
	TicketNumber     int       `json:"ticket_number"`
	Subject          string    `json:"subject,omitempty"`
	Intent           Intent    `json:"intent"`
	Summary          string    `json:"summary"`
	RootCause        string    `json:"root_cause,omitempty"`
	Entities         Entities  `json:"entities"`
	SeverityScore    int       `json:"severity_score"`
	Severity         Severity  `json:"severity"`
	ClusterKey       string    `json:"cluster_key,omitempty"`
	SuggestedTags    []string  `json:"suggested_tags,omitempty"`
	EscalationReason string    `json:"escalation_reason,omitempty"`
	LowConfidence    bool      `json:"low_confidence,omitempty"`
	SignalText       string    `json:"-"`
	ContentHash      string    `json:"-"`
	EnrichedAt       time.Time `json:"enriched_at"`
}

// FeedbackAction is the kind of human action recorded against a ticket.
type FeedbackAction string

const (
	ActionSeen          FeedbackAction = "seen"
	ActionDismissed     FeedbackAction = "dismissed"
	ActionTagCorrection FeedbackAction = "tag_correction"
)

// ParseFeedbackAction validates a raw action string.
func ParseFeedbackAction(s string) (FeedbackAction, error) {
	switch FeedbackAction(s) {
	case ActionSeen, ActionDismissed, ActionTagCorrection:
		return FeedbackAction(s), nil
	}
	return "", fmt.Errorf("unknown feedback action %q", s)
}

// FeedbackRecord is one human action on one ticket. At most one record
// exists per (TicketID, Action); resubmission replaces the prior payload.
type FeedbackRecord struct {
	ID              string         `json:"id"`
	TicketID        string         `json:"ticket_id"`
	Action          FeedbackAction `json:"action"`
	CorrectIntent   Intent         `json:"correct_intent,omitempty"`
	CorrectSeverity Severity       `json:"correct_severity,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	TicketText      string         `json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Query selects a page of enriched records, newest ticket numbers first.
type Query struct {
	Since  time.Time
	Limit  int
	Offset int
}

// suggestedTags builds the tag list for a record: the intent tag first, then
// the severity tag, then any free-form classifier tags that do not collide
// with the reserved prefixes.
func suggestedTags(intent Intent, sev Severity, extra []string) []string {
	tags := []string{"intent:" + string(intent), "sev:" + string(sev)}
	for _, t := range extra {
		if t == "" || hasReservedPrefix(t) {
			continue
		}
		tags = append(tags, t)
	}
	return tags
}

func hasReservedPrefix(t string) bool {
	return strings.HasPrefix(t, "intent:") || strings.HasPrefix(t, "sev:")
}
