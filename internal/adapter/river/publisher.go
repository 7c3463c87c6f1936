package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/rsvp/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// EventJobArgs is a snapshot of a reservation at the moment an event was
// published. River stores it as JSON in its job table, so the worker never
// reads the reservations store.
type EventJobArgs struct {
	Event         string    `json:"event"`
	ReservationID string    `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	ResourceID    string    `json:"resource_id"`
	Status        string    `json:"status"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Note          string    `json:"note,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "reservation.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a reservation event as an async job.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, r domain.Reservation) error {
	_, err := p.client.Insert(ctx, NewEventJobArgs(event, r), nil)
	if err != nil {
		return fmt.Errorf("enqueuing %s event for reservation %s: %w", event, r.ID, err)
	}
	return nil
}

// NewEventJobArgs builds the job payload for event on r.
func NewEventJobArgs(event domain.Event, r domain.Reservation) EventJobArgs {
	window := r.Window.UTC()
	return EventJobArgs{
		Event:         string(event),
		ReservationID: r.ID.String(),
		UserID:        r.UserID,
		ResourceID:    r.ResourceID,
		Status:        r.Status.String(),
		Start:         window.Start,
		End:           window.End,
		Note:          r.Note,
	}
}
