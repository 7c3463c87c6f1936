package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrInvalidReservationID = errors.New("invalid reservation id")
	ErrInvalidTimespan      = errors.New("invalid timespan")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidResourceID    = errors.New("invalid resource id")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrNotFound             = errors.New("reservation not found")
	ErrUnknown              = errors.New("unknown error")
)

// ConflictError is returned when a reservation window overlaps an active
// reservation on the same resource. Existing is set when the store reports
// the window it collided with.
type ConflictError struct {
	ResourceID string
	Window     Window
	Existing   *Window
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("resource %q is already reserved between %s and %s",
		e.ResourceID, e.Window.Start.UTC().Format(time.RFC3339), e.Window.End.UTC().Format(time.RFC3339))
	if e.Existing != nil {
		msg += fmt.Sprintf(" (conflicts with %s to %s)",
			e.Existing.Start.UTC().Format(time.RFC3339), e.Existing.End.UTC().Format(time.RFC3339))
	}
	return msg
}

// StorageError wraps a failure of the persistence layer that is not a
// domain condition: connectivity, timeouts, driver errors.
type StorageError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *StorageError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("storage %s timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// IsDomainError reports whether err already belongs to the reservation
// error taxonomy and needs no further classification.
func IsDomainError(err error) bool {
	var (
		conflictErr   *ConflictError
		storageErr    *StorageError
		transitionErr *TransitionError
	)
	switch {
	case errors.As(err, &conflictErr), errors.As(err, &storageErr), errors.As(err, &transitionErr):
		return true
	}
	for _, sentinel := range []error{
		ErrInvalidReservationID, ErrInvalidTimespan, ErrInvalidStatus,
		ErrInvalidResourceID, ErrInvalidUserID, ErrNotFound, ErrUnknown,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
