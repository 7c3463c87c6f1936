package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"
)

// DefaultWorkers is the queue concurrency used when Setup is given zero.
const DefaultWorkers = 2

// Setup brings River's schema on db up to date and returns a client with
// the reservation event worker registered. The client is not started.
func Setup(ctx context.Context, db *sql.DB, log *zap.Logger, maxWorkers int) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if maxWorkers <= 0 {
		maxWorkers = DefaultWorkers
	}

	driver := riversqlite.New(db)
	if err := migrate(ctx, driver); err != nil {
		return nil, err
	}

	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, NewEventWorker(log)); err != nil {
		return nil, fmt.Errorf("registering event worker: %w", err)
	}

	cfg := &river.Config{
		Queues:  map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: maxWorkers}},
		Workers: workers,
	}
	client, err := river.NewClient(driver, cfg)
	if err != nil {
		return nil, fmt.Errorf("new river client: %w", err)
	}
	return client, nil
}

// migrate applies River's bundled migrations. They are tracked apart from
// the reservation store's goose versions.
func migrate(ctx context.Context, driver *riversqlite.Driver) error {
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return fmt.Errorf("new river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	return nil
}
