package enrich

import (
	"regexp"
	"strings"
)

// MinSignalLen is the cleaned-text length below which a ticket is treated as
// carrying no real user message. Such tickets never reach the LLM: there is
// nothing to classify and a model prompted with template residue invents
// problems that do not exist.
const MinSignalLen = 40

var boilerplateLine = regexp.MustCompile(`(?im)^\s*(user\s*id|userid|os|device|platform|app\s*version)\s*[=:].*$`)

var (
	htmlTag       = regexp.MustCompile(`<[^>]+>`)
	bracketedTag  = regexp.MustCompile(`\[[^\[\]]{1,40}\]`)
	dividerRun    = regexp.MustCompile(`[-=_*]{3,}`)
	supportHeader = regexp.MustCompile(`(?i)support request`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// ExtractSignal strips template boilerplate, markup, and dividers from raw
// ticket text and collapses whitespace. The result is the signal text the
// rest of the pipeline operates on.
func ExtractSignal(raw string) string {
	s := boilerplateLine.ReplaceAllString(raw, "")
	s = htmlTag.ReplaceAllString(s, "")
	s = bracketedTag.ReplaceAllString(s, "")
	s = supportHeader.ReplaceAllString(s, "")
	s = dividerRun.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// shortWords is a minimal dictionary of common English function and support
// vocabulary words. looksUnreadable uses coverage against it as one signal;
// the list only needs to be large enough to separate prose from mashing.
var shortWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(
		"the a an i my me it is are was were and or but not no yes to of in on at for with from this that you your we our " +
			"game app level play can cant cannot wont dont have has had do does did when why how what where please help issue " +
			"problem bug crash error account money pay paid buy bought lost lose progress update new old open close start stop " +
			"work works working broken fix love hate good bad great thanks thank hi hello after before again every time") {
		shortWords[w] = struct{}{}
	}
}

// looksUnreadable applies a deterministic gibberish heuristic to signal text.
// A ticket is unreadable when any of these hold:
//   - fewer than half of its runes are letters or spaces
//   - a single character repeats 6+ times in a row
//   - fewer than 20% of its words contain a vowel
//   - it has 4+ words and under 10% of them appear in the small dictionary
//     while average word length exceeds 9
func looksUnreadable(signal string) bool {
	if signal == "" {
		return true
	}
	lower := strings.ToLower(signal)

	var letters, total int
	var run, maxRun int
	var prev rune
	for _, r := range lower {
		total++
		if (r >= 'a' && r <= 'z') || r == ' ' {
			letters++
		}
		if r == prev {
			run++
		} else {
			run = 1
			prev = r
		}
		if run > maxRun {
			maxRun = run
		}
	}
	if total > 0 && float64(letters)/float64(total) < 0.5 {
		return true
	}
	if maxRun >= 6 {
		return true
	}

	words := strings.Fields(lower)
	if len(words) == 0 {
		return true
	}
	var withVowel, known, lenSum int
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"()")
		if strings.ContainsAny(w, "aeiou") {
			withVowel++
		}
		if _, ok := shortWords[w]; ok {
			known++
		}
		lenSum += len(w)
	}
	if float64(withVowel)/float64(len(words)) < 0.2 {
		return true
	}
	if len(words) >= 4 {
		avgLen := float64(lenSum) / float64(len(words))
		if float64(known)/float64(len(words)) < 0.1 && avgLen > 9 {
			return true
		}
	}
	return false
}

const (
	incompleteSummary = "Empty ticket - no user message provided"
	unreadableSummary = "Unreadable ticket - message could not be understood"
)

// shortCircuitIntent decides whether signal text terminates the pipeline
// before classification. It returns the forced intent and a fixed summary,
// or ok=false when the ticket should continue downstream.
func shortCircuitIntent(signal string) (intent Intent, summary string, ok bool) {
	if len(signal) < MinSignalLen {
		return IntentIncompleteTicket, incompleteSummary, true
	}
	if looksUnreadable(signal) {
		return IntentUnreadable, unreadableSummary, true
	}
	return "", "", false
}
