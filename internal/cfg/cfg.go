package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config holds deskwatch application configuration filled from flags and
// DESKWATCH_-prefixed environment variables.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	AnthropicAPIKey       string
	AnthropicModel        string
	LLMTimeoutSeconds     int
	LLMRetries            int
	DatabaseURL           string
	SlackWebhookURL       string
	RulesPath             string
	APIKey                string
	SweepSchedule         string
	SweepWindowHours      int
	SweepBatchSize        int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.AnthropicAPIKey, "anthropic-api-key", "", "API key for the Claude classification provider (empty = rule-only classification)")
	fs.StringVar(&c.AnthropicModel, "anthropic-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.IntVar(&c.LLMTimeoutSeconds, "llm-timeout-seconds", 20, "per-attempt timeout for LLM classification calls (1..120)")
	fs.IntVar(&c.LLMRetries, "llm-retries", 2, "transport-error retries per LLM classification (0..5)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for ticket alerts (empty = alerts decided but not delivered)")
	fs.StringVar(&c.RulesPath, "rules-path", "", "path to severity keyword rules YAML (empty = built-in defaults)")
	fs.StringVar(&c.APIKey, "api-key", "", "API key required on mutating endpoints")
	fs.StringVar(&c.SweepSchedule, "sweep-schedule", "@every 10m", "cron schedule for the low-confidence reclassification sweep (empty = disabled)")
	fs.IntVar(&c.SweepWindowHours, "sweep-window-hours", 72, "how far back the sweep looks for low-confidence records (1..720)")
	fs.IntVar(&c.SweepBatchSize, "sweep-batch-size", 25, "max records re-enriched per sweep run (1..500)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Model is required whenever a key is set
	if c.AnthropicAPIKey != "" && c.AnthropicModel == "" {
		errs = append(errs, errors.New("ANTHROPIC_MODEL is required when ANTHROPIC_API_KEY is set"))
	}

	if c.LLMTimeoutSeconds <= 0 || c.LLMTimeoutSeconds > 120 {
		errs = append(errs, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS %d (must be 1..120)", c.LLMTimeoutSeconds))
	}
	if c.LLMRetries < 0 || c.LLMRetries > 5 {
		errs = append(errs, fmt.Errorf("invalid LLM_RETRIES %d (must be 0..5)", c.LLMRetries))
	}

	// Mutating endpoints refuse all requests without a shared key
	if c.APIKey == "" {
		errs = append(errs, errors.New("API_KEY is required"))
	}

	if c.SweepWindowHours <= 0 || c.SweepWindowHours > 720 {
		errs = append(errs, fmt.Errorf("invalid SWEEP_WINDOW_HOURS %d (must be 1..720)", c.SweepWindowHours))
	}
	if c.SweepBatchSize <= 0 || c.SweepBatchSize > 500 {
		errs = append(errs, fmt.Errorf("invalid SWEEP_BATCH_SIZE %d (must be 1..500)", c.SweepBatchSize))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
