package enrich

import (
	"errors"
	"fmt"
)

// ValidationError rejects a malformed ticket before it enters the pipeline.
type ValidationError struct {
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid ticket: %v", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

// PersistenceError wraps a store failure that survived the bounded retry
// budget. Unlike classification failures it is surfaced to the caller:
// silent data loss is not acceptable.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ticket validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// errClassifierDisabled marks the configuration-degraded path where no LLM
// provider is wired. The pipeline falls back to rule-only classification.
var errClassifierDisabled = errors.New("classifier disabled: no provider configured")
