package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockProvider implements Provider for testing.
type mockProvider struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	lastReq   *CompletionRequest
}

func (m *mockProvider) Complete(_ context.Context, req *CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	m.lastReq = req
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	if len(m.responses) > 0 {
		return m.responses[len(m.responses)-1], nil
	}
	return "", errors.New("no response configured")
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

const validResponse = `{"intent":"crash_report","summary":"Game crashes when opening the shop","root_cause":"shop screen crash","tags":["shop","crash"]}`

func TestBuildPrompt_ListsClassifiableIntents(t *testing.T) {
	t.Parallel()

	system, user := BuildPrompt("my game is broken", nil)

	for _, in := range ClassifiableIntents() {
		if !strings.Contains(system, string(in)) {
			t.Errorf("system prompt missing intent %q", in)
		}
	}
	for _, in := range []Intent{IntentIncompleteTicket, IntentUnreadable} {
		if strings.Contains(system, string(in)) {
			t.Errorf("system prompt must not offer preprocessor intent %q", in)
		}
	}
	if user != "my game is broken" {
		t.Errorf("user prompt = %q, want the signal text", user)
	}
}

func TestBuildPrompt_EmbedsExamples(t *testing.T) {
	t.Parallel()

	examples := []Example{
		{Text: "I lost my save file", Intent: IntentLostProgress, Severity: SeverityHigh, Notes: "progress loss, not a bug"},
		{Text: "charged but no gems", Intent: IntentBillingIssue},
	}

	system, _ := BuildPrompt("whatever", examples)

	if !strings.Contains(system, "I lost my save file") {
		t.Error("system prompt missing first example text")
	}
	if !strings.Contains(system, string(IntentLostProgress)) {
		t.Error("system prompt missing corrected intent")
	}
	if !strings.Contains(system, "progress loss, not a bug") {
		t.Error("system prompt missing correction notes")
	}
	if !strings.Contains(system, "Example 2") {
		t.Error("system prompt missing second example")
	}
}

func TestBuildPrompt_CapsExampleCountAndLength(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", exampleTextLimit+50)
	var examples []Example
	for i := 0; i < maxExamples+3; i++ {
		examples = append(examples, Example{Text: long, Intent: IntentBugReport})
	}

	system, _ := BuildPrompt("signal", examples)

	if strings.Contains(system, "Example 6") {
		t.Error("more than 5 examples embedded")
	}
	if strings.Contains(system, long) {
		t.Error("example text was not truncated")
	}
	if !strings.Contains(system, strings.Repeat("x", exampleTextLimit)+"...") {
		t.Error("truncated example should end in ellipsis")
	}
}

func TestBuildPrompt_TruncatesSignal(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("y", promptTextLimit+500)
	_, user := BuildPrompt(long, nil)
	if len(user) != promptTextLimit {
		t.Errorf("user prompt length = %d, want %d", len(user), promptTextLimit)
	}
}

func TestClassify_ValidResponse(t *testing.T) {
	t.Parallel()

	p := &mockProvider{responses: []string{validResponse}}
	c := NewClassifier(p, time.Second, 0, nil, ClassifierHooks{})

	cls := c.Classify(context.Background(), "game crashes in the shop", nil)

	if cls.Intent != IntentCrashReport {
		t.Errorf("intent = %q, want %q", cls.Intent, IntentCrashReport)
	}
	if cls.Summary != "Game crashes when opening the shop" {
		t.Errorf("summary = %q", cls.Summary)
	}
	if cls.RootCause != "shop screen crash" {
		t.Errorf("root cause = %q", cls.RootCause)
	}
	if cls.LowConfidence {
		t.Error("valid response should not be low-confidence")
	}
	if len(cls.Tags) != 2 {
		t.Errorf("tags = %v, want 2 entries", cls.Tags)
	}
}

func TestClassify_FencedResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"plain fences", "```\n" + validResponse + "\n```"},
		{"json fences", "```json\n" + validResponse + "\n```"},
		{"upper json fences", "```JSON\n" + validResponse + "\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &mockProvider{responses: []string{tt.raw}}
			c := NewClassifier(p, time.Second, 0, nil, ClassifierHooks{})
			cls := c.Classify(context.Background(), "game crashes", nil)
			if cls.Intent != IntentCrashReport {
				t.Errorf("intent = %q, want %q", cls.Intent, IntentCrashReport)
			}
			if cls.LowConfidence {
				t.Error("fenced but valid response should parse cleanly")
			}
		})
	}
}

func TestClassify_InvalidResponseFallsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "the user has a crash problem"},
		{"unknown intent", `{"intent":"refund_request","summary":"s"}`},
		{"preprocessor intent", `{"intent":"unreadable","summary":"s"}`},
		{"missing summary", `{"intent":"bug_report","summary":"  "}`},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &mockProvider{responses: []string{tt.raw}}
			c := NewClassifier(p, time.Second, 3, nil, ClassifierHooks{})

			cls := c.Classify(context.Background(), "I want a refund for my purchase", nil)

			if !cls.LowConfidence {
				t.Error("fallback result must be low-confidence")
			}
			if cls.Intent != IntentBillingIssue {
				t.Errorf("intent = %q, want rule guess %q", cls.Intent, IntentBillingIssue)
			}
			// Schema-invalid output is not retried.
			if p.callCount() != 1 {
				t.Errorf("provider calls = %d, want 1", p.callCount())
			}
		})
	}
}

func TestClassify_TransientErrorRetried(t *testing.T) {
	t.Parallel()

	p := &mockProvider{
		errs:      []error{errors.New("connection reset"), nil},
		responses: []string{"", validResponse},
	}
	c := NewClassifier(p, time.Second, 2, nil, ClassifierHooks{})

	cls := c.Classify(context.Background(), "game crashes", nil)

	if cls.Intent != IntentCrashReport {
		t.Errorf("intent = %q, want %q after retry", cls.Intent, IntentCrashReport)
	}
	if p.callCount() != 2 {
		t.Errorf("provider calls = %d, want 2", p.callCount())
	}
}

func TestClassify_RetryBudgetExhausted(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	p := &mockProvider{errs: []error{boom, boom, boom}}
	c := NewClassifier(p, time.Second, 2, nil, ClassifierHooks{})

	cls := c.Classify(context.Background(), "the game crash keeps happening", nil)

	if !cls.LowConfidence {
		t.Error("expected low-confidence fallback")
	}
	if cls.Intent != IntentCrashReport {
		t.Errorf("intent = %q, want rule guess %q", cls.Intent, IntentCrashReport)
	}
	if p.callCount() != 3 {
		t.Errorf("provider calls = %d, want 3", p.callCount())
	}
}

func TestClassify_NilProvider(t *testing.T) {
	t.Parallel()

	c := NewClassifier(nil, time.Second, 2, nil, ClassifierHooks{})

	cls := c.Classify(context.Background(), "how do I change my username?", nil)

	if !cls.LowConfidence {
		t.Error("expected low-confidence fallback")
	}
	if cls.Intent != IntentQuestion {
		t.Errorf("intent = %q, want %q", cls.Intent, IntentQuestion)
	}
}

func TestClassify_FallbackSummaryTruncated(t *testing.T) {
	t.Parallel()

	c := NewClassifier(nil, time.Second, 0, nil, ClassifierHooks{})
	signal := strings.Repeat("z", 500)
	cls := c.Classify(context.Background(), signal, nil)
	if len(cls.Summary) != 120 {
		t.Errorf("fallback summary length = %d, want 120", len(cls.Summary))
	}
}

func TestClassify_HooksObserveOutcomes(t *testing.T) {
	t.Parallel()

	var llmOutcomes []string
	var fallbacks []string
	hooks := ClassifierHooks{
		OnLLMCall:  func(outcome string, _ float64) { llmOutcomes = append(llmOutcomes, outcome) },
		OnFallback: func(intent string) { fallbacks = append(fallbacks, intent) },
	}

	p := &mockProvider{errs: []error{errors.New("x")}}
	c := NewClassifier(p, time.Second, 0, nil, hooks)
	c.Classify(context.Background(), "hello there", nil)

	if len(llmOutcomes) != 1 || llmOutcomes[0] != "error" {
		t.Errorf("llm outcomes = %v, want [error]", llmOutcomes)
	}
	if len(fallbacks) != 1 || fallbacks[0] != string(IntentQuestion) {
		t.Errorf("fallbacks = %v, want [question]", fallbacks)
	}
}

func TestRuleIntentGuess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		signal string
		want   Intent
	}{
		{"I want a refund", IntentBillingIssue},
		{"charged for a subscription I cancelled", IntentBillingIssue},
		{"app crash on startup", IntentCrashReport},
		{"the game won't open anymore", IntentCrashReport},
		{"how do I beat level 3", IntentQuestion},
		{"", IntentQuestion},
	}

	for _, tt := range tests {
		if got := ruleIntentGuess(tt.signal); got != tt.want {
			t.Errorf("ruleIntentGuess(%q) = %q, want %q", tt.signal, got, tt.want)
		}
	}
}
