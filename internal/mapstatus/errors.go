package mapstatus

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the status document has never been created.
	ErrNotFound = errors.New("map status document not found")

	// ErrConflict is returned when the remote revision advanced past the
	// revision the caller read. The caller must re-fetch and retry or abort.
	ErrConflict = errors.New("map status revision conflict")
)

// NetworkError wraps a transient transport failure. Callers may retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("map status %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// InvalidFormatError is returned when the stored bytes do not parse as the
// expected document schema.
type InvalidFormatError struct {
	Reason string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid map status document: %s", e.Reason)
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
