package enrich

import (
	"fmt"
	"time"
)

// EscalationWindow is the trailing period over which same-cluster ticket
// volume is counted for dynamic escalation.
const EscalationWindow = 48 * time.Hour

// Volume thresholds for gameplay_issue escalation: counts include the
// arriving ticket itself.
const (
	volumeMediumThreshold = 3
	volumeHighThreshold   = 5
)

// Score thresholds for the base bucket.
const (
	scoreHighThreshold   = 50
	scoreMediumThreshold = 30
)

// BucketForScore maps a 0..100 severity score to its base bucket.
func BucketForScore(score int) Severity {
	switch {
	case score >= scoreHighThreshold:
		return SeverityHigh
	case score >= scoreMediumThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ResolveSeverity applies the override ladder on top of the score-derived
// bucket, in precedence order:
//
//  1. intent-forced overrides (crash_report/lost_progress high, billing_issue
//     at least medium, gameplay_issue starts low)
//  2. volume escalation for gameplay_issue against clusterVolume, the count
//     of same-cluster tickets inside EscalationWindow including this one
//  3. the final override: incomplete_ticket and unreadable are always low
//
// The switch is exhaustive over the Intent enumeration; a new intent value
// must be handled here before it can ship.
func ResolveSeverity(intent Intent, score int, clusterVolume int) (Severity, string) {
	base := BucketForScore(score)
	var bucket Severity
	var reason string

	switch intent {
	case IntentCrashReport, IntentLostProgress:
		bucket = SeverityHigh
	case IntentBillingIssue:
		bucket = maxSeverity(base, SeverityMedium)
	case IntentGameplayIssue:
		bucket = SeverityLow
		switch {
		case clusterVolume >= volumeHighThreshold:
			bucket = SeverityHigh
			reason = fmt.Sprintf("%d similar gameplay reports in the last 48h", clusterVolume)
		case clusterVolume >= volumeMediumThreshold:
			bucket = SeverityMedium
			reason = fmt.Sprintf("%d similar gameplay reports in the last 48h", clusterVolume)
		}
	case IntentBugReport, IntentDeleteAccount, IntentQuestion, IntentFeedback:
		bucket = base
	case IntentIncompleteTicket, IntentUnreadable:
		bucket = SeverityLow
	default:
		panic(fmt.Sprintf("unhandled intent %q in severity engine", intent))
	}

	// Final override: short-circuited intents stay low even if a feedback
	// correction re-runs severity with a high score attached.
	if intent == IntentIncompleteTicket || intent == IntentUnreadable {
		return SeverityLow, ""
	}
	return bucket, reason
}

// clampToOverrides re-applies the intent-forced rules to an explicitly
// chosen severity. Human corrections may move severity freely only where no
// override binds; crash_report and lost_progress stay high, billing_issue
// never drops below medium, and the short-circuit intents stay low.
func clampToOverrides(intent Intent, sev Severity) Severity {
	switch intent {
	case IntentCrashReport, IntentLostProgress:
		return SeverityHigh
	case IntentBillingIssue:
		return maxSeverity(sev, SeverityMedium)
	case IntentIncompleteTicket, IntentUnreadable:
		return SeverityLow
	}
	return sev
}
