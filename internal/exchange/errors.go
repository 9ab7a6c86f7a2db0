package exchange

import (
	"errors"
	"fmt"
)

// NetworkError marks a transport-level failure. Callers may retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ExchangeError is a venue-side rejection. Retrying will not help.
type ExchangeError struct {
	Code int
	Msg  string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange rejected request (code=%d): %s", e.Code, e.Msg)
}

// IsNetwork reports whether err is a retryable transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsRejection reports whether err is a terminal venue rejection.
func IsRejection(err error) bool {
	var ee *ExchangeError
	return errors.As(err, &ee)
}
