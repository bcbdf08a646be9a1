package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// Provider is the interface to the external classification capability.
type Provider interface {
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}

// CompletionRequest is a single prompt/response exchange. Classification is
// stateless; continuous learning happens purely through the examples baked
// into the system prompt.
type CompletionRequest struct {
	System    string
	User      string
	MaxTokens int
}

// Example is a past human correction supplied to the model as a worked
// example.
type Example struct {
	Text     string
	Intent   Intent
	Severity Severity
	Notes    string
}

// Classification is the validated output of the intent classifier.
type Classification struct {
	Intent        Intent
	Summary       string
	RootCause     string
	Tags          []string
	LowConfidence bool
}

const (
	responseMaxTokens = 400
	promptTextLimit   = 6000
	exampleTextLimit  = 150
	maxExamples       = 5
)

// Classifier turns signal text into a Classification via the LLM provider,
// guarding the pipeline against provider failures with a rule-only fallback.
type Classifier struct {
	provider Provider
	timeout  time.Duration
	retries  int
	logger   log.Logger
	hooks    ClassifierHooks
}

// NewClassifier creates a classifier. A nil provider disables LLM
// classification; every call then takes the rule-only fallback path.
func NewClassifier(provider Provider, timeout time.Duration, retries int, logger log.Logger, hooks ClassifierHooks) *Classifier {
	if logger == nil {
		logger = log.Nop()
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &Classifier{
		provider: provider,
		timeout:  timeout,
		retries:  retries,
		logger:   logger,
		hooks:    hooks,
	}
}

const systemPromptBase = `You are an expert support analyst for a mobile games studio. Analyze the user's support ticket and respond with ONLY a valid JSON object, no prose:

{
  "intent": "one of the valid intents below",
  "summary": "one sentence under 15 words describing the specific user problem, using the user's own words",
  "root_cause": "brief description of the fundamental issue",
  "tags": ["keyword1", "keyword2"]
}

Distinctions that matter:
- crash_report is for the app closing or force-closing; bug_report is for wrong behavior that does not crash the app.
- gameplay_issue is for in-game mechanics problems (balance, stuck levels, missing items).
- Never invent a problem the user did not describe.`

// BuildPrompt constructs the system and user prompts for one classification
// call. It is a pure function so prompt construction is testable without a
// provider. At most 5 examples are embedded, assumed newest first.
func BuildPrompt(signal string, examples []Example) (system, user string) {
	var b strings.Builder
	b.WriteString(systemPromptBase)

	b.WriteString("\n\nValid intent values:")
	for _, in := range ClassifiableIntents() {
		b.WriteString("\n- ")
		b.WriteString(string(in))
	}

	if len(examples) > maxExamples {
		examples = examples[:maxExamples]
	}
	if len(examples) > 0 {
		b.WriteString("\n\nLearn from these corrections made by the support team:")
		for i, ex := range examples {
			text := ex.Text
			if len(text) > exampleTextLimit {
				text = text[:exampleTextLimit] + "..."
			}
			fmt.Fprintf(&b, "\n\nExample %d:\nTicket text: %s\nCorrect intent: %s", i+1, text, ex.Intent)
			if ex.Severity != "" {
				fmt.Fprintf(&b, "\nCorrect severity: %s", ex.Severity)
			}
			if ex.Notes != "" {
				fmt.Fprintf(&b, "\nWhy: %s", ex.Notes)
			}
		}
	}

	b.WriteString("\n\nOutput ONLY the JSON object. No other text.")

	if len(signal) > promptTextLimit {
		signal = signal[:promptTextLimit]
	}
	return b.String(), signal
}

// Classify runs one classification call with a per-attempt timeout and a
// bounded retry budget for transient provider failures. It never returns an
// error: on any unrecoverable failure the result is the rule-only fallback
// flagged low-confidence.
func (c *Classifier) Classify(ctx context.Context, signal string, examples []Example) Classification {
	if c.provider == nil {
		return c.fallback(ctx, signal, errClassifierDisabled)
	}

	system, user := BuildPrompt(signal, examples)
	req := &CompletionRequest{System: system, User: user, MaxTokens: responseMaxTokens}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return c.fallback(ctx, signal, ctx.Err())
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		raw, err := c.provider.Complete(callCtx, req)
		cancel()

		if err != nil {
			lastErr = err
			if c.hooks.OnLLMCall != nil {
				c.hooks.OnLLMCall("error", time.Since(start).Seconds())
			}
			c.logger.Warn(ctx, "classification call failed", "attempt", attempt+1, "error", err)
			continue
		}
		if c.hooks.OnLLMCall != nil {
			c.hooks.OnLLMCall("ok", time.Since(start).Seconds())
		}

		cls, err := parseClassification(raw)
		if err != nil {
			// Schema-invalid output is not transient; retrying the same
			// prompt mostly reproduces it.
			c.logger.Warn(ctx, "classification response rejected", "error", err)
			return c.fallback(ctx, signal, err)
		}
		return cls
	}
	return c.fallback(ctx, signal, lastErr)
}

func (c *Classifier) fallback(ctx context.Context, signal string, cause error) Classification {
	intent := ruleIntentGuess(signal)
	if c.hooks.OnFallback != nil {
		c.hooks.OnFallback(string(intent))
	}
	c.logger.Info(ctx, "using rule-only classification", "intent", intent, "cause", fmt.Sprint(cause))

	summary := signal
	if len(summary) > 120 {
		summary = summary[:120]
	}
	return Classification{
		Intent:        intent,
		Summary:       summary,
		LowConfidence: true,
	}
}

type rawClassification struct {
	Intent    string   `json:"intent"`
	Summary   string   `json:"summary"`
	RootCause string   `json:"root_cause"`
	Tags      []string `json:"tags"`
}

// parseClassification decodes and validates a raw model response. Code
// fences are stripped because models wrap JSON in them despite instructions.
func parseClassification(raw string) (Classification, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Classification{}, fmt.Errorf("empty response")
	}
	if strings.HasPrefix(raw, "```") {
		raw = strings.Trim(raw, "`\n ")
		if len(raw) >= 4 && strings.EqualFold(raw[:4], "json") {
			raw = raw[4:]
		}
		raw = strings.TrimSpace(raw)
	}

	var rc rawClassification
	if err := json.Unmarshal([]byte(raw), &rc); err != nil {
		return Classification{}, fmt.Errorf("invalid JSON: %w", err)
	}

	intent, err := ParseIntent(rc.Intent)
	if err != nil {
		return Classification{}, err
	}
	if intent == IntentIncompleteTicket || intent == IntentUnreadable {
		return Classification{}, fmt.Errorf("classifier may not emit %q", intent)
	}
	if strings.TrimSpace(rc.Summary) == "" {
		return Classification{}, fmt.Errorf("missing summary")
	}

	return Classification{
		Intent:    intent,
		Summary:   strings.TrimSpace(rc.Summary),
		RootCause: strings.TrimSpace(rc.RootCause),
		Tags:      rc.Tags,
	}, nil
}
