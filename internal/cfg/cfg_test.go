package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		AnthropicAPIKey:       "sk-test-key",
		AnthropicModel:        "claude-sonnet-4-20250514",
		LLMTimeoutSeconds:     20,
		LLMRetries:            2,
		APIKey:                "test-key-123",
		SweepSchedule:         "@every 10m",
		SweepWindowHours:      72,
		SweepBatchSize:        25,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.AnthropicModel != "claude-sonnet-4-20250514" {
		t.Errorf("AnthropicModel = %q, want %q", c.AnthropicModel, "claude-sonnet-4-20250514")
	}
	if c.LLMTimeoutSeconds != 20 {
		t.Errorf("LLMTimeoutSeconds = %d, want 20", c.LLMTimeoutSeconds)
	}
	if c.SweepSchedule != "@every 10m" {
		t.Errorf("SweepSchedule = %q, want %q", c.SweepSchedule, "@every 10m")
	}
	if c.SweepWindowHours != 72 {
		t.Errorf("SweepWindowHours = %d, want 72", c.SweepWindowHours)
	}
	if c.SweepBatchSize != 25 {
		t.Errorf("SweepBatchSize = %d, want 25", c.SweepBatchSize)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-anthropic-api-key", "sk-override",
		"-anthropic-model", "claude-opus-4-20250514",
		"-llm-timeout-seconds", "45",
		"-llm-retries", "4",
		"-database-url", "postgres://x/y",
		"-rules-path", "/etc/deskwatch/rules.yaml",
		"-api-key", "other-key",
		"-sweep-schedule", "@hourly",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.AnthropicAPIKey != "sk-override" {
		t.Errorf("AnthropicAPIKey = %q, want %q", c.AnthropicAPIKey, "sk-override")
	}
	if c.AnthropicModel != "claude-opus-4-20250514" {
		t.Errorf("AnthropicModel = %q, want %q", c.AnthropicModel, "claude-opus-4-20250514")
	}
	if c.LLMTimeoutSeconds != 45 {
		t.Errorf("LLMTimeoutSeconds = %d, want 45", c.LLMTimeoutSeconds)
	}
	if c.LLMRetries != 4 {
		t.Errorf("LLMRetries = %d, want 4", c.LLMRetries)
	}
	if c.DatabaseURL != "postgres://x/y" {
		t.Errorf("DatabaseURL = %q, want %q", c.DatabaseURL, "postgres://x/y")
	}
	if c.RulesPath != "/etc/deskwatch/rules.yaml" {
		t.Errorf("RulesPath = %q, want %q", c.RulesPath, "/etc/deskwatch/rules.yaml")
	}
	if c.APIKey != "other-key" {
		t.Errorf("APIKey = %q, want %q", c.APIKey, "other-key")
	}
	if c.SweepSchedule != "@hourly" {
		t.Errorf("SweepSchedule = %q, want %q", c.SweepSchedule, "@hourly")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "base is valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "empty anthropic key is a supported degraded mode",
			mutate: func(c *Config) {
				c.AnthropicAPIKey = ""
				c.AnthropicModel = ""
			},
			wantErr: false,
		},
		{
			name:      "key without model",
			mutate:    func(c *Config) { c.AnthropicModel = "" },
			wantErr:   true,
			errSubstr: []string{"ANTHROPIC_MODEL"},
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			mutate:    func(c *Config) { c.DrainSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			mutate:    func(c *Config) { c.DrainSeconds = 301; c.ShutdownBudgetSeconds = 300 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		// ShutdownBudgetSeconds boundaries
		{
			name:      "budget zero",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget equals drain",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = c.DrainSeconds },
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		// APIPort boundaries
		{
			name:      "port zero",
			mutate:    func(c *Config) { c.APIPort = 0 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			mutate:    func(c *Config) { c.APIPort = 65536 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		// LLM knobs
		{
			name:      "llm timeout zero",
			mutate:    func(c *Config) { c.LLMTimeoutSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"LLM_TIMEOUT_SECONDS"},
		},
		{
			name:      "llm timeout above max",
			mutate:    func(c *Config) { c.LLMTimeoutSeconds = 121 },
			wantErr:   true,
			errSubstr: []string{"LLM_TIMEOUT_SECONDS"},
		},
		{
			name:      "llm retries negative",
			mutate:    func(c *Config) { c.LLMRetries = -1 },
			wantErr:   true,
			errSubstr: []string{"LLM_RETRIES"},
		},
		{
			name:      "llm retries above max",
			mutate:    func(c *Config) { c.LLMRetries = 6 },
			wantErr:   true,
			errSubstr: []string{"LLM_RETRIES"},
		},
		// API key
		{
			name:      "empty api key",
			mutate:    func(c *Config) { c.APIKey = "" },
			wantErr:   true,
			errSubstr: []string{"API_KEY"},
		},
		// Sweep knobs
		{
			name:    "empty sweep schedule disables sweep",
			mutate:  func(c *Config) { c.SweepSchedule = "" },
			wantErr: false,
		},
		{
			name:      "sweep window zero",
			mutate:    func(c *Config) { c.SweepWindowHours = 0 },
			wantErr:   true,
			errSubstr: []string{"SWEEP_WINDOW_HOURS"},
		},
		{
			name:      "sweep window above max",
			mutate:    func(c *Config) { c.SweepWindowHours = 721 },
			wantErr:   true,
			errSubstr: []string{"SWEEP_WINDOW_HOURS"},
		},
		{
			name:      "sweep batch zero",
			mutate:    func(c *Config) { c.SweepBatchSize = 0 },
			wantErr:   true,
			errSubstr: []string{"SWEEP_BATCH_SIZE"},
		},
		{
			name:      "sweep batch above max",
			mutate:    func(c *Config) { c.SweepBatchSize = 501 },
			wantErr:   true,
			errSubstr: []string{"SWEEP_BATCH_SIZE"},
		},
		// Error accumulation
		{
			name: "all invalid accumulates",
			mutate: func(c *Config) {
				c.DrainSeconds = 0
				c.ShutdownBudgetSeconds = 0
				c.APIPort = 0
				c.LLMTimeoutSeconds = 0
				c.APIKey = ""
				c.SweepWindowHours = 0
				c.SweepBatchSize = 0
			},
			wantErr: true,
			errSubstr: []string{
				"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT",
				"LLM_TIMEOUT_SECONDS", "API_KEY", "SWEEP_WINDOW_HOURS", "SWEEP_BATCH_SIZE",
			},
		},
		{
			name: "extreme negative values",
			mutate: func(c *Config) {
				c.DrainSeconds = math.MinInt32
				c.ShutdownBudgetSeconds = math.MinInt32
				c.APIPort = math.MinInt32
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validBase()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port, llmTimeout, llmRetries, sweepWindow, sweepBatch int
		key, model, apiKey                                                  string
	}{
		{60, 90, 8080, 20, 2, 72, 25, "sk-test", "claude-sonnet", "k"},
		{1, 2, 1, 1, 0, 1, 1, "k", "m", "t"},
		{299, 300, 65535, 120, 5, 720, 500, "k", "m", "t"},
		{0, 0, 0, 0, 0, 0, 0, "", "", ""},
		{-1, -1, -1, -1, -1, -1, -1, "", "", ""},
		{150, 100, 8080, 20, 2, 72, 25, "k", "m", "t"},
		{math.MinInt32, math.MinInt32, math.MinInt32, 0, 0, 0, 0, "", "", ""},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, "", "", ""},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.llmTimeout, s.llmRetries, s.sweepWindow, s.sweepBatch, s.key, s.model, s.apiKey)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, llmTimeout, llmRetries, sweepWindow, sweepBatch int, key, model, apiKey string) {
		c := Config{
			DrainSeconds:          drain,
			ShutdownBudgetSeconds: budget,
			APIPort:               port,
			AnthropicAPIKey:       key,
			AnthropicModel:        model,
			LLMTimeoutSeconds:     llmTimeout,
			LLMRetries:            llmRetries,
			APIKey:                apiKey,
			SweepWindowHours:      sweepWindow,
			SweepBatchSize:        sweepBatch,
		}
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		modelOK := key == "" || model != ""
		llmTimeoutOK := llmTimeout >= 1 && llmTimeout <= 120
		llmRetriesOK := llmRetries >= 0 && llmRetries <= 5
		apiKeyOK := apiKey != ""
		sweepWindowOK := sweepWindow >= 1 && sweepWindow <= 720
		sweepBatchOK := sweepBatch >= 1 && sweepBatch <= 500

		allValid := drainOK && budgetOK && portOK && crossOK && modelOK &&
			llmTimeoutOK && llmRetriesOK && apiKeyOK && sweepWindowOK && sweepBatchOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
