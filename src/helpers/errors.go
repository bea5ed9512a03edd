package helpers

import (
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Error taxonomy
//
// TransientError: upstream fetch failures (timeouts, non-2xx, malformed
// payloads). Retried at the day granularity via the state machine, never
// mid-computation.
//
// ErrInsufficientData: a correlation with an empty or undefined input
// series. This is a normal condition; callers skip persistence silently.
//
// StructuralError: an invariant violation inside one unit of work (index
// minute misaligned with constituents, missing prior-minute record). Fails
// that unit and schedules a retry; never crashes the orchestrator.
// -----------------------------------------------------------------------------

var ErrInsufficientData = errors.New("insufficient data")

// -----------------------------------------------------------------------------

type TransientError struct {
	Message string
	Cause   error
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// -----------------------------------------------------------------------------

type StructuralError struct {
	Message string
	Cause   error
}

func (e *StructuralError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StructuralError) Unwrap() error {
	return e.Cause
}

// -----------------------------------------------------------------------------

func Transient(format string, args ...interface{}) error {
	return &TransientError{Message: fmt.Sprintf(format, args...)}
}

func TransientWrap(err error, format string, args ...interface{}) error {
	return &TransientError{Message: fmt.Sprintf(format, args...), Cause: err}
}

func Structural(format string, args ...interface{}) error {
	return &StructuralError{Message: fmt.Sprintf(format, args...)}
}

// -----------------------------------------------------------------------------

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts fn up to maxRetries times with exponential
// backoff. Used for point requests inside the provider client; day-level
// retry stays with the state machine.
func RetryWithBackoff(maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == maxRetries-1 {
			break
		}
		time.Sleep(baseDelay * (1 << attempt))
	}

	return lastErr
}
