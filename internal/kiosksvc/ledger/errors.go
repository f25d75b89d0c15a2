package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport means the request never produced a usable HTTP response
	// within the retry budget.
	ErrTransport = errors.New("ledger: transport failure")
	// ErrTruncated means the response body overflowed the client buffer and
	// the clipped remainder did not parse. Distinct from ErrParse so callers
	// can tell "clipped" from "genuinely bad data".
	ErrTruncated = errors.New("ledger: response truncated")
	// ErrParse means a complete body failed to decode.
	ErrParse = errors.New("ledger: malformed response")
	// ErrInvalidArgument means the request was unsendable as given; it is
	// never retried.
	ErrInvalidArgument = errors.New("ledger: invalid argument")
)

// StatusError reports a non-2xx reply that survived all retry attempts.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ledger: unexpected status %d", e.Code)
}
