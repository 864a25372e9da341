package model

import "strings"

// ValidationState is derived from the free-text validation column set by reviewers
type ValidationState string

const (
	StatePending   ValidationState = "Pending"
	StateApproved  ValidationState = "Approved"
	StateCancelled ValidationState = "Cancelled"
)

const (
	ValidationOK = "OK"
	ValidationKO = "KO"
)

// StateOf maps a validation cell to its state. Anything other than OK or KO is still pending.
func StateOf(validation string) ValidationState {
	switch strings.ToUpper(strings.TrimSpace(validation)) {
	case ValidationOK:
		return StateApproved
	case ValidationKO:
		return StateCancelled
	default:
		return StatePending
	}
}
