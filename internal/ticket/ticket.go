// Package ticket defines the inbound support-ticket model. Tickets arrive
// from an external help desk (webhook delivery or backfill); deskwatch never
// fetches conversation content itself.
package ticket

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Ticket is a single customer conversation as delivered by the help desk.
// Read-only to the enrichment core.
type Ticket struct {
	ID           string    `json:"id"`
	Number       int       `json:"number"`
	Subject      string    `json:"subject"`
	Body         string    `json:"body"`
	Tags         []string  `json:"tags,omitempty"`
	CustomerName string    `json:"customer_name,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
	AgentReplied bool      `json:"agent_replied"`
}

// Validate checks the fields a ticket must carry before it may enter the
// enrichment pipeline.
func (t *Ticket) Validate() error {
	var errs []error
	if strings.TrimSpace(t.ID) == "" {
		errs = append(errs, errors.New("ticket id is required"))
	}
	if t.Number < 0 {
		errs = append(errs, fmt.Errorf("ticket number %d must not be negative", t.Number))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Text returns subject and body joined the way the classifier sees them.
func (t *Ticket) Text() string {
	return strings.TrimSpace(t.Subject + "\n" + t.Body)
}
