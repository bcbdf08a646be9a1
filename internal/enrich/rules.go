package enrich

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScoreRule is one keyword group contributing points to the severity score.
// A group contributes its points at most once per ticket no matter how many
// of its keywords match.
type ScoreRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Points   int      `yaml:"points"`
}

// Rules is the severity scoring table. Operators can override the defaults
// with a YAML file so keyword tuning does not require a deploy.
type Rules struct {
	Score []ScoreRule `yaml:"score"`
}

// DefaultRules returns the built-in scoring table. The charged-twice group
// alone reaches the high bucket threshold and the refund group alone reaches
// medium, matching the explicit sub-keyword guarantees.
func DefaultRules() Rules {
	return Rules{Score: []ScoreRule{
		{Name: "double_charge", Points: 50, Keywords: []string{"charged twice", "charge twice", "double charge", "double charged", "unauthorized charge"}},
		{Name: "crash", Points: 35, Keywords: []string{"crash", "crashing", "force close", "exception", "won't open", "wont open", "cannot open"}},
		{Name: "progress_loss", Points: 30, Keywords: []string{"progress lost", "lost progress", "lost my progress", "save lost", "wipe", "reset progress"}},
		{Name: "refund", Points: 30, Keywords: []string{"refund", "money back", "chargeback"}},
		{Name: "payment", Points: 25, Keywords: []string{"payment", "purchase", "charged", "billing", "iap", "subscription"}},
		{Name: "account", Points: 20, Keywords: []string{"can't login", "cannot login", "login failed", "account locked", "account delete"}},
		{Name: "data_loss", Points: 20, Keywords: []string{"data loss", "corrupt", "unable to play", "unplayable"}},
		{Name: "urgency", Points: 10, Keywords: []string{"urgent", "asap", "immediately", "critical"}},
	}}
}

// LoadRules reads a scoring table from a YAML file. An empty path returns
// the defaults.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	var r Rules
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules file: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Rules{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return r, nil
}

// Validate rejects empty or nonsensical rule groups.
func (r Rules) Validate() error {
	if len(r.Score) == 0 {
		return fmt.Errorf("no score rules defined")
	}
	for i, sr := range r.Score {
		if len(sr.Keywords) == 0 {
			return fmt.Errorf("score rule %d (%s) has no keywords", i, sr.Name)
		}
		if sr.Points <= 0 || sr.Points > 100 {
			return fmt.Errorf("score rule %d (%s) has points %d outside 1..100", i, sr.Name, sr.Points)
		}
	}
	return nil
}

// ScoreText accumulates group points for every rule with at least one
// keyword present in the text, clamped to 0..100.
func (r Rules) ScoreText(signal string) int {
	t := strings.ToLower(signal)
	score := 0
	for _, sr := range r.Score {
		for _, k := range sr.Keywords {
			if strings.Contains(t, k) {
				score += sr.Points
				break
			}
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}
