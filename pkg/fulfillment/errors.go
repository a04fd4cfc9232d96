package fulfillment

import (
	"errors"
	"fmt"
)

var (
	// ErrCodeNotFound means no sales record matched the activation code
	// after every lookup strategy.
	ErrCodeNotFound = errors.New("activation code not found in sales ledger")

	// ErrExhausted means no available key matched the reservation criteria.
	// Callers must not retry synchronously; restocking is an operator action.
	ErrExhausted = errors.New("no available key matches criteria")

	// ErrClaimNotFound is returned by claim lookups.
	ErrClaimNotFound = errors.New("claim not found")
)

// RetryableError marks a transient infrastructure fault. A claim hit by one
// keeps its current status and is picked up again on the next sweep; it is
// never recorded as a terminal outcome.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: %v (retryable)", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func retryable(op string, err error) error {
	return &RetryableError{Op: op, Err: err}
}

// IsRetryable reports whether err is a transient fault rather than a
// terminal business outcome.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
