// Package slack delivers ticket alerts to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/deskwatch/internal/enrich"
)

const (
	maxSummaryLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier posts enriched-ticket alerts to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Deliver is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Deliver posts an alert payload to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Deliver(ctx context.Context, p *enrich.AlertPayload) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(p)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(p *enrich.AlertPayload) map[string]any {
	blocks := []map[string]any{
		headerBlock(p),
		{"type": "divider"},
		fieldsBlock(p),
		{"type": "divider"},
		summaryBlock(p),
	}
	if p.EscalationReason != "" {
		blocks = append(blocks, escalationBlock(p))
	}
	blocks = append(blocks, map[string]any{"type": "divider"}, contextBlock(p))

	return map[string]any{"blocks": blocks}
}

func headerBlock(p *enrich.AlertPayload) map[string]any {
	subject := p.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	text := fmt.Sprintf("%s Ticket #%d: %s", severityEmoji(p.Severity), p.TicketNumber, subject)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(p *enrich.AlertPayload) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Intent:* %s", p.Intent),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Severity:* %s", p.Severity),
		},
	}
	if p.Platform != "" {
		fields = append(fields, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Platform:* %s", p.Platform),
		})
	}
	if len(p.Tags) > 0 {
		fields = append(fields, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Tags:* %s", strings.Join(p.Tags, ", ")),
		})
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func summaryBlock(p *enrich.AlertPayload) map[string]any {
	text := truncate(p.Summary, maxSummaryLen)
	if text == "" {
		text = "_No summary available._"
	}
	if p.RootCause != "" {
		text += "\n\n*Likely cause:* " + truncate(p.RootCause, 500)
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Summary*\n\n%s", text),
		},
	}
}

func escalationBlock(p *enrich.AlertPayload) map[string]any {
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf(":chart_with_upwards_trend: *Escalated:* %s", p.EscalationReason),
		},
	}
}

func contextBlock(p *enrich.AlertPayload) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("deskwatch • ticket %s", p.TicketID),
			},
		},
	}
}

func severityEmoji(severity enrich.Severity) string {
	switch severity {
	case enrich.SeverityHigh:
		return "\U0001f534" // red circle
	case enrich.SeverityMedium:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
