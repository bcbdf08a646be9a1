package enrich

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	levelRe      = regexp.MustCompile(`(?i)\blevel\s*(\d{1,4})\b`)
	androidRe    = regexp.MustCompile(`(?i)\bandroid\b`)
	iosRe        = regexp.MustCompile(`(?i)\bios\b|\biphone|\bipad`)
	appVersionRe = regexp.MustCompile(`\bv?(\d+\.\d+(?:\.\d+)*)\b`)
)

// ExtractEntities pulls level, platform, and app version out of ticket text
// with regex heuristics. Missing fields stay zero-valued.
func ExtractEntities(text string) Entities {
	var e Entities
	if m := levelRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			e.Level = &n
		}
	}
	switch {
	case androidRe.MatchString(text):
		e.Platform = "android"
	case iosRe.MatchString(text):
		e.Platform = "ios"
	}
	if m := appVersionRe.FindStringSubmatch(text); m != nil {
		e.AppVersion = m[1]
	}
	return e
}

// ruleIntentGuess is the fallback classification used when the LLM is
// unavailable or returns garbage. It only claims the two intents that have
// unambiguous keyword evidence; everything else defaults to question.
func ruleIntentGuess(signal string) Intent {
	t := strings.ToLower(signal)
	for _, k := range []string{"refund", "charged", "billing", "payment", "purchase", "subscription", "iap"} {
		if strings.Contains(t, k) {
			return IntentBillingIssue
		}
	}
	for _, k := range []string{"crash", "force close", "force-close", "won't open", "wont open", "cannot open"} {
		if strings.Contains(t, k) {
			return IntentCrashReport
		}
	}
	return IntentQuestion
}
