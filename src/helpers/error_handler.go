package helpers

import (
	"errors"
	"fmt"
	"time"

	"p2p-observer/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ObserverError struct {
	Message string
	Cause   error
}

func (e *ObserverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ObserverError) Unwrap() error {
	return e.Cause
}

// One distinct type per failure class the dashboard reacts to.
//
// FetchFailureError    - transport level failure, nothing usable came back
// BackendRejectedError - a response arrived but reported ok:false
// StaleResultError     - result discarded by a staleness check, never user-visible
// InvalidPairError     - malformed or empty currency codes, blocks the fetch
// ValidationError      - rejected user input, surfaced as HTTP 400
//
// An ineligible reference pair is not an error at all: the spread row
// renders as not applicable and the panel keeps refreshing.
type FetchFailureError struct{ ObserverError }
type BackendRejectedError struct{ ObserverError }
type StaleResultError struct{ ObserverError }
type InvalidPairError struct{ ObserverError }
type ValidationError struct{ ObserverError }

// -----------------------------------------------------------------------------

func NewFetchFailure(msg string, cause error) error {
	return &FetchFailureError{ObserverError{Message: msg, Cause: cause}}
}

func NewBackendRejected(msg string) error {
	return &BackendRejectedError{ObserverError{Message: msg}}
}

func NewStaleResult(msg string) error {
	return &StaleResultError{ObserverError{Message: msg}}
}

func NewInvalidPair(msg string) error {
	return &InvalidPairError{ObserverError{Message: msg}}
}

func NewValidation(msg string) error {
	return &ValidationError{ObserverError{Message: msg}}
}

// -----------------------------------------------------------------------------

// IsBackendRejected reports whether err is a BackendRejectedError.
func IsBackendRejected(err error) bool {
	var target *BackendRejectedError
	return errors.As(err, &target)
}

// IsStale reports whether err is a StaleResultError.
func IsStale(err error) bool {
	var target *StaleResultError
	return errors.As(err, &target)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		// A rejected response will not improve on retry
		if IsBackendRejected(err) {
			return err
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return lastErr
}
