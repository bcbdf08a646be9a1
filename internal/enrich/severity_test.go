package enrich

import (
	"strings"
	"testing"
)

func TestBucketForScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score int
		want  Severity
	}{
		{0, SeverityLow},
		{29, SeverityLow},
		{30, SeverityMedium},
		{49, SeverityMedium},
		{50, SeverityHigh},
		{100, SeverityHigh},
	}

	for _, tt := range tests {
		if got := BucketForScore(tt.score); got != tt.want {
			t.Errorf("BucketForScore(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestResolveSeverity_ForcedOverrides(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		intent Intent
		score  int
		volume int
		want   Severity
	}{
		{"crash forces high at zero score", IntentCrashReport, 0, 0, SeverityHigh},
		{"lost progress forces high at zero score", IntentLostProgress, 0, 0, SeverityHigh},
		{"billing floor is medium", IntentBillingIssue, 0, 0, SeverityMedium},
		{"billing keeps high score", IntentBillingIssue, 75, 0, SeverityHigh},
		{"bug report uses base low", IntentBugReport, 10, 0, SeverityLow},
		{"bug report uses base medium", IntentBugReport, 35, 0, SeverityMedium},
		{"bug report uses base high", IntentBugReport, 60, 0, SeverityHigh},
		{"question uses base", IntentQuestion, 30, 0, SeverityMedium},
		{"feedback uses base", IntentFeedback, 0, 0, SeverityLow},
		{"delete account uses base", IntentDeleteAccount, 20, 0, SeverityLow},
		{"incomplete pinned low despite high score", IntentIncompleteTicket, 90, 0, SeverityLow},
		{"unreadable pinned low despite high score", IntentUnreadable, 90, 0, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, _ := ResolveSeverity(tt.intent, tt.score, tt.volume)
			if got != tt.want {
				t.Errorf("ResolveSeverity(%q, %d, %d) = %q, want %q", tt.intent, tt.score, tt.volume, got, tt.want)
			}
		})
	}
}

func TestResolveSeverity_GameplayVolumeEscalation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		volume     int
		want       Severity
		wantReason bool
	}{
		{0, SeverityLow, false},
		{1, SeverityLow, false},
		{2, SeverityLow, false},
		{3, SeverityMedium, true},
		{4, SeverityMedium, true},
		{5, SeverityHigh, true},
		{12, SeverityHigh, true},
	}

	for _, tt := range tests {
		got, reason := ResolveSeverity(IntentGameplayIssue, 0, tt.volume)
		if got != tt.want {
			t.Errorf("volume %d: severity = %q, want %q", tt.volume, got, tt.want)
		}
		if (reason != "") != tt.wantReason {
			t.Errorf("volume %d: reason = %q, wantReason %v", tt.volume, reason, tt.wantReason)
		}
		if tt.wantReason && !strings.Contains(reason, "48h") {
			t.Errorf("volume %d: reason %q should mention the 48h window", tt.volume, reason)
		}
	}
}

func TestResolveSeverity_GameplayScoreDoesNotEscalate(t *testing.T) {
	t.Parallel()

	// Gameplay issues start low regardless of keyword score; only volume
	// raises them.
	got, _ := ResolveSeverity(IntentGameplayIssue, 60, 1)
	if got != SeverityLow {
		t.Errorf("severity = %q, want %q", got, SeverityLow)
	}
}

func TestClampToOverrides(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		intent Intent
		chosen Severity
		want   Severity
	}{
		{"crash cannot drop below high", IntentCrashReport, SeverityLow, SeverityHigh},
		{"lost progress cannot drop below high", IntentLostProgress, SeverityMedium, SeverityHigh},
		{"billing floored at medium", IntentBillingIssue, SeverityLow, SeverityMedium},
		{"billing keeps high", IntentBillingIssue, SeverityHigh, SeverityHigh},
		{"bug report moves freely", IntentBugReport, SeverityLow, SeverityLow},
		{"question moves freely", IntentQuestion, SeverityHigh, SeverityHigh},
		{"incomplete pinned low", IntentIncompleteTicket, SeverityHigh, SeverityLow},
		{"unreadable pinned low", IntentUnreadable, SeverityMedium, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := clampToOverrides(tt.intent, tt.chosen); got != tt.want {
				t.Errorf("clampToOverrides(%q, %q) = %q, want %q", tt.intent, tt.chosen, got, tt.want)
			}
		})
	}
}

func TestResolveSeverity_UnknownIntentPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown intent")
		}
	}()
	ResolveSeverity(Intent("refund_request"), 0, 0)
}
