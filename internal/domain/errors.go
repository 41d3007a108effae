package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrRoomNotFound        = errors.New("room not found")
	ErrPropertyNotFound    = errors.New("property not found")
)

// TransitionError is returned when a lifecycle event is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from status %q", e.Event, e.Current)
}

// TransitionRejectedError is returned when validation produced hard errors.
type TransitionRejectedError struct {
	ReservationID string
	Result        ValidationResult
}

func (e *TransitionRejectedError) Error() string {
	return fmt.Sprintf("transition of reservation %q rejected: %s",
		e.ReservationID, strings.Join(e.Result.Errors, "; "))
}

// ApprovalRequiredError is returned when a valid transition must go through manager review.
type ApprovalRequiredError struct {
	ReservationID string
	Reason        string
}

func (e *ApprovalRequiredError) Error() string {
	return fmt.Sprintf("transition of reservation %q requires approval: %s", e.ReservationID, e.Reason)
}
