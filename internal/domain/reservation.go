package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reservation is an exclusive claim of a resource over a time window.
type Reservation struct {
	ID         uuid.UUID
	UserID     string
	ResourceID string
	Status     Status
	Window     Window
	Note       string
}

// NewReservation creates an unsaved reservation in the initial pending state.
func NewReservation(userID, resourceID string, start, end time.Time, note string) Reservation {
	return Reservation{
		UserID:     userID,
		ResourceID: resourceID,
		Status:     StatusPending,
		Window:     NewWindow(start, end),
		Note:       note,
	}
}

// ConflictsWith reports whether r and other would violate the no-overlap
// invariant if both were stored.
func (r Reservation) ConflictsWith(other Reservation) bool {
	return r.ResourceID == other.ResourceID &&
		r.Status.Active() && other.Status.Active() &&
		r.Window.Overlaps(other.Window)
}
