package river

import (
	"context"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// EventWorker processes reservation event jobs from the River queue.
// It records each event in the log as the reservation audit trail.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
	log *zap.Logger
}

// NewEventWorker creates a worker that logs through log.
func NewEventWorker(log *zap.Logger) *EventWorker {
	return &EventWorker{log: log.Named("events")}
}

// Work processes a single event job.
func (w *EventWorker) Work(_ context.Context, job *river.Job[EventJobArgs]) error {
	w.log.Info("reservation event",
		zap.String("event", job.Args.Event),
		zap.String("reservation_id", job.Args.ReservationID),
		zap.String("resource_id", job.Args.ResourceID),
		zap.String("user_id", job.Args.UserID),
		zap.String("status", job.Args.Status),
		zap.Time("start", job.Args.Start),
		zap.Time("end", job.Args.End),
		zap.Int64("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
	)
	return nil
}
