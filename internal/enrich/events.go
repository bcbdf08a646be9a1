package enrich

import "sync"

// EventType distinguishes why a record changed.
type EventType string

const (
	EventEnriched  EventType = "enriched"
	EventCorrected EventType = "corrected"
)

// Event announces that a ticket's enrichment changed. External layers map
// these to whatever live-update transport they choose (SSE, websockets);
// the core only maintains the observer list.
type Event struct {
	Type         EventType
	TicketID     string
	TicketNumber int
}

type subscribers struct {
	mu  sync.RWMutex
	fns []func(Event)
}

func (s *subscribers) add(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fns = append(s.fns, fn)
}

// publish invokes subscribers synchronously. Callbacks are expected to be
// cheap (enqueue and return); anything slow belongs on the subscriber's side
// of the boundary.
func (s *subscribers) publish(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fn := range s.fns {
		fn(ev)
	}
}
