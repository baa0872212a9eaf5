package enrich

import (
	"errors"
	"fmt"
)

// Collaborator error constants
var (
	// ErrInputEmpty is returned when the parsed candidate sequence is empty;
	// user-correctable, no request is issued.
	ErrInputEmpty = errors.New("no indicators found in input")

	// ErrEnvelopeInvalid is returned on a 2xx response whose success envelope
	// is malformed. Treated like a network failure for user messaging, but it
	// indicates a contract breach by the collaborator.
	ErrEnvelopeInvalid = errors.New("collaborator returned an invalid response envelope")
)

// NetworkError wraps a transport failure or non-2xx status from a
// collaborator call. Retryable by the user; the core performs no automatic
// retry.
type NetworkError struct {
	Collaborator string
	StatusCode   int // 0 when the transport itself failed
	Err          error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d", e.Collaborator, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed: %v", e.Collaborator, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether an error should be surfaced to the operator as
// a retryable failure.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr) || errors.Is(err, ErrEnvelopeInvalid)
}
