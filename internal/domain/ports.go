package domain

import (
	"context"

	"github.com/google/uuid"
)

// ReservationRepository defines the persistence contract for reservations.
// Every method is a single atomic statement against the store.
type ReservationRepository interface {
	// Insert stores r and assigns its ID. The store rejects the row with a
	// *ConflictError when it overlaps an active reservation on the same resource.
	Insert(ctx context.Context, r Reservation) (Reservation, error)
	// UpdateStatus sets the status to `to` only where the row currently has
	// status `from`. Zero matched rows is ErrNotFound.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (Reservation, error)
	UpdateNote(ctx context.Context, id uuid.UUID, note string) (Reservation, error)
	// Delete removes the row and returns it as it was.
	Delete(ctx context.Context, id uuid.UUID) (Reservation, error)
	Get(ctx context.Context, id uuid.UUID) (Reservation, error)
	Query(ctx context.Context, filter QueryFilter) ([]Reservation, error)
}

// EventPublisher defines the contract for emitting domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, r Reservation) error
}

// TransitionValidator validates status transitions against the lifecycle rules.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}
