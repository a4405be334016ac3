package datasource

import (
	"errors"
	"fmt"
)

// TransientError wraps failures worth retrying: timeouts, connection
// resets, throttling and 5xx responses.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("datasource: %s: %v (transient)", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps failures that retrying cannot fix: unknown
// symbols, malformed responses, 4xx responses other than 429.
type PermanentError struct {
	Op  string
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("datasource: %s: %v", e.Op, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

func permanent(op string, err error) error {
	return &PermanentError{Op: op, Err: err}
}
