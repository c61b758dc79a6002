package booking

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidTransition = errors.New("booking: invalid state transition")

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusPaid      Status = "PAID"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
)

// transitions is the single source of truth for the booking lifecycle.
// Statuses mapped to an empty set are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusRejected},
	StatusConfirmed: {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusRejected:  {},
}

// TransitionError names the rejected action and the legal targets so callers
// can surface an actionable message.
type TransitionError struct {
	Action  string
	From    Status
	To      Status
	Allowed []Status
}

func (e *TransitionError) Error() string {
	allowed := "none"
	if len(e.Allowed) > 0 {
		names := make([]string, len(e.Allowed))
		for i, s := range e.Allowed {
			names[i] = string(s)
		}
		allowed = strings.Join(names, ", ")
	}
	return fmt.Sprintf("booking: cannot %s: transition %s -> %s is not allowed (valid: %s)", e.Action, e.From, e.To, allowed)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// IsValidTransition reports whether from -> to is in the transition table.
// A no-op transition (from == to) is not valid; idempotent retries are the
// caller's concern.
func IsValidTransition(from, to Status) bool {
	if from == to {
		return false
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns nil for a no-op (idempotent retry, tolerated by
// callers) and a TransitionError for anything outside the table.
func ValidateTransition(from, to Status, action string) error {
	if from == to {
		return nil
	}
	if !IsValidTransition(from, to) {
		return &TransitionError{Action: action, From: from, To: to, Allowed: NextStates(from)}
	}
	return nil
}

// NextStates lists the legal targets from a status.
func NextStates(from Status) []Status {
	next := transitions[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func CanCancel(status Status) bool {
	return status == StatusPending || status == StatusConfirmed || status == StatusPaid
}

func CanConfirm(status Status) bool {
	return status == StatusPending
}

func CanPay(status Status, paid bool) bool {
	return status == StatusConfirmed && !paid
}

func CanComplete(status Status) bool {
	return status == StatusPaid
}

func IsTerminal(status Status) bool {
	return len(transitions[status]) == 0
}
