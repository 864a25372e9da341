package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Error categories. Use errors.Is to classify an error returned by the core.
var (
	ErrValidation   = errors.New("validation error")
	ErrPolicy       = errors.New("policy error")
	ErrAvailability = errors.New("availability conflict")
	ErrNotFound     = errors.New("not found")
	ErrLockTimeout  = errors.New("lock wait timed out")
)

func ValidationError(msg string) error {
	return errors.Mark(errors.New(msg), ErrValidation)
}

func PolicyError(msg string) error {
	return errors.Mark(errors.New(msg), ErrPolicy)
}

func NotFoundError(msg string) error {
	return errors.Mark(errors.New(msg), ErrNotFound)
}

// AvailabilityConflict reports the slots that stopped a booking. The hint is meant for the
// requester.
func AvailabilityConflict(missing []string) error {
	err := errors.Newf("slots not available: %s", strings.Join(missing, ", "))
	err = errors.WithHint(err, fmt.Sprintf("The following hours are not available: %s. Pick another start time or fewer hours.", strings.Join(missing, ", ")))
	return errors.Mark(err, ErrAvailability)
}

// LockTimeoutError wraps the error returned while waiting for a lock
func LockTimeoutError(lockName string, wait time.Duration, cause error) error {
	err := errors.Wrapf(cause, "waited %s for lock %q", wait, lockName)
	err = errors.WithHint(err, "The system is busy, try again in a few seconds.")
	return errors.Mark(err, ErrLockTimeout)
}

// IsRetryable reports whether the caller may retry the failed operation unchanged
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}

// UserMessage renders err for the requester, preferring attached hints
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if hints := errors.FlattenHints(err); hints != "" {
		return hints
	}
	return err.Error()
}
