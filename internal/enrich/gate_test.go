package enrich

import (
	"slices"
	"testing"
)

func TestDecideAlert_AgentRepliedAlwaysSuppresses(t *testing.T) {
	t.Parallel()

	intents := []Intent{
		IntentCrashReport, IntentBillingIssue, IntentDeleteAccount,
		IntentIncompleteTicket, IntentUnreadable, IntentQuestion,
	}

	for _, in := range intents {
		r := &Record{TicketID: "t1", Intent: in, Severity: SeverityHigh}
		d := DecideAlert(r, true)
		if d.Action != AlertSuppress {
			t.Errorf("intent %q: action = %q, want %q", in, d.Action, AlertSuppress)
		}
		if d.Reason != "agent already replied" {
			t.Errorf("intent %q: reason = %q", in, d.Reason)
		}
	}
}

func TestDecideAlert_SendsWithoutAgentReply(t *testing.T) {
	t.Parallel()

	r := &Record{
		TicketID:     "t1",
		TicketNumber: 42,
		Subject:      "shop crash",
		Intent:       IntentCrashReport,
		Severity:     SeverityHigh,
		Summary:      "Game crashes opening the shop",
		Entities:     Entities{Platform: "android"},
	}

	d := DecideAlert(r, false)
	if d.Action != AlertSend {
		t.Fatalf("action = %q, want %q", d.Action, AlertSend)
	}
	if d.Payload.TicketID != "t1" || d.Payload.TicketNumber != 42 {
		t.Errorf("payload identity wrong: %+v", d.Payload)
	}
	if d.Payload.Platform != "android" {
		t.Errorf("payload platform = %q", d.Payload.Platform)
	}
}

func TestDecideAlert_SpecialTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		intent  Intent
		wantTag string
	}{
		{IntentDeleteAccount, "urgent:delete_request"},
		{IntentIncompleteTicket, "empty_ticket"},
		{IntentUnreadable, "unreadable"},
	}

	for _, tt := range tests {
		r := &Record{TicketID: "t1", Intent: tt.intent, Severity: SeverityLow}
		d := DecideAlert(r, false)
		if !slices.Contains(d.Payload.Tags, tt.wantTag) {
			t.Errorf("intent %q: tags %v missing %q", tt.intent, d.Payload.Tags, tt.wantTag)
		}

		// Special tag is attached even when suppressed, so the payload is
		// complete for dry-run inspection.
		d = DecideAlert(r, true)
		if !slices.Contains(d.Payload.Tags, tt.wantTag) {
			t.Errorf("intent %q suppressed: tags %v missing %q", tt.intent, d.Payload.Tags, tt.wantTag)
		}
	}
}

func TestDecideAlert_DoesNotMutateRecordTags(t *testing.T) {
	t.Parallel()

	r := &Record{
		TicketID:      "t1",
		Intent:        IntentDeleteAccount,
		SuggestedTags: []string{"intent:delete_account", "sev:low"},
	}

	d := DecideAlert(r, false)
	if len(d.Payload.Tags) != 3 {
		t.Fatalf("payload tags = %v, want original plus special tag", d.Payload.Tags)
	}
	if len(r.SuggestedTags) != 2 {
		t.Errorf("record tags mutated: %v", r.SuggestedTags)
	}
}
