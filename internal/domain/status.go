package domain

import "fmt"

// Status represents the lifecycle state of a reservation.
// The numeric values are the raw codes used on the wire.
type Status int32

const (
	StatusUnknown   Status = 0
	StatusPending   Status = 1
	StatusConfirmed Status = 2
	StatusBlocked   Status = 3
)

// String returns the storage name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Active reports whether the status takes part in conflict detection.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// StatusFromRaw converts a raw wire code into a Status.
func StatusFromRaw(code int32) (Status, error) {
	switch s := Status(code); s {
	case StatusUnknown, StatusPending, StatusConfirmed, StatusBlocked:
		return s, nil
	default:
		return StatusUnknown, fmt.Errorf("status code %d: %w", code, ErrInvalidStatus)
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(name string) (Status, error) {
	switch name {
	case "unknown":
		return StatusUnknown, nil
	case "pending":
		return StatusPending, nil
	case "confirmed":
		return StatusConfirmed, nil
	case "blocked":
		return StatusBlocked, nil
	default:
		return StatusUnknown, fmt.Errorf("status %q: %w", name, ErrInvalidStatus)
	}
}

// Event represents an action that triggers a state transition
// or is published after a successful mutation.
type Event string

const (
	EventReserve    Event = "reserve"
	EventConfirm    Event = "confirm"
	EventUpdateNote Event = "update_note"
	EventDelete     Event = "delete"
)

// Transition defines a valid state change: an event moves a reservation from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid status changes. Blocked is terminal and
// only reachable outside this service.
var Transitions = []Transition{
	{Event: EventConfirm, Src: StatusPending, Dst: StatusConfirmed},
}
