package analytics

import "fmt"

// InvalidInputError reports a malformed or out-of-range parameter. It names
// the offending field so callers can surface it without parsing the message.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Reason)
}

func invalidInput(field, format string, args ...interface{}) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InsufficientDataError reports that a signal cannot be computed from the
// available history. It is never retried by the engine.
type InsufficientDataError struct {
	Subject string
	Needed  int
	Got     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d observations, have %d", e.Subject, e.Needed, e.Got)
}

// DataAccessError wraps an accessor failure. It is propagated unchanged to
// the caller; the engine never swallows or retries it.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access failed in %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}
