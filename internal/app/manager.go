package app

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neomorfeo/rsvp/internal/domain"
)

// ReservationManager validates reservation operations and delegates each
// one to a single atomic call on the repository. It holds no mutable state
// and is safe for concurrent use.
type ReservationManager struct {
	repo        domain.ReservationRepository
	publisher   domain.EventPublisher
	transitions domain.TransitionValidator
	validate    *validator.Validate
	log         *zap.Logger
	timeout     time.Duration
}

// Option configures a ReservationManager.
type Option func(*ReservationManager)

// WithLogger sets the logger used for publish failures and diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(m *ReservationManager) {
		m.log = log.Named("manager")
	}
}

// WithStorageTimeout bounds every repository call. Zero disables the bound.
func WithStorageTimeout(d time.Duration) Option {
	return func(m *ReservationManager) {
		m.timeout = d
	}
}

// NewReservationManager creates a manager with the given adapters.
func NewReservationManager(
	repo domain.ReservationRepository,
	publisher domain.EventPublisher,
	transitions domain.TransitionValidator,
	opts ...Option,
) *ReservationManager {
	m := &ReservationManager{
		repo:        repo,
		publisher:   publisher,
		transitions: transitions,
		validate:    validator.New(),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reserve books r. Any caller-supplied ID is discarded; a missing status
// defaults to pending. The window is cut to store precision before it is
// validated. Overlap detection happens inside the store's insert.
func (m *ReservationManager) Reserve(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	r.ID = uuid.Nil
	r.Window = r.Window.Truncate()
	if r.Status == domain.StatusUnknown {
		r.Status = domain.StatusPending
	}
	if err := m.validateReservation(r); err != nil {
		return domain.Reservation{}, err
	}

	ctx, cancel := m.storageContext(ctx)
	defer cancel()

	created, err := m.repo.Insert(ctx, r)
	if err != nil {
		return domain.Reservation{}, classify("insert", err)
	}

	m.publish(ctx, domain.EventReserve, created)
	return created, nil
}

// ChangeStatus confirms a pending reservation. The update only applies
// while the stored row is still pending; otherwise it reports ErrNotFound.
func (m *ReservationManager) ChangeStatus(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	if err := validateID(id); err != nil {
		return domain.Reservation{}, err
	}

	to, err := m.transitions.Apply(ctx, domain.StatusPending, domain.EventConfirm)
	if err != nil {
		return domain.Reservation{}, err
	}

	ctx, cancel := m.storageContext(ctx)
	defer cancel()

	updated, err := m.repo.UpdateStatus(ctx, id, domain.StatusPending, to)
	if err != nil {
		return domain.Reservation{}, classify("update status", err)
	}

	m.publish(ctx, domain.EventConfirm, updated)
	return updated, nil
}

// UpdateNote replaces the note of an existing reservation.
func (m *ReservationManager) UpdateNote(ctx context.Context, id uuid.UUID, note string) (domain.Reservation, error) {
	if err := validateID(id); err != nil {
		return domain.Reservation{}, err
	}

	ctx, cancel := m.storageContext(ctx)
	defer cancel()

	updated, err := m.repo.UpdateNote(ctx, id, note)
	if err != nil {
		return domain.Reservation{}, classify("update note", err)
	}

	m.publish(ctx, domain.EventUpdateNote, updated)
	return updated, nil
}

// Get returns a reservation by its identifier.
func (m *ReservationManager) Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	if err := validateID(id); err != nil {
		return domain.Reservation{}, err
	}

	ctx, cancel := m.storageContext(ctx)
	defer cancel()

	r, err := m.repo.Get(ctx, id)
	if err != nil {
		return domain.Reservation{}, classify("get", err)
	}
	return r, nil
}

// Delete removes a reservation and returns the removed row.
func (m *ReservationManager) Delete(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	if err := validateID(id); err != nil {
		return domain.Reservation{}, err
	}

	ctx, cancel := m.storageContext(ctx)
	defer cancel()

	deleted, err := m.repo.Delete(ctx, id)
	if err != nil {
		return domain.Reservation{}, classify("delete", err)
	}

	m.publish(ctx, domain.EventDelete, deleted)
	return deleted, nil
}

// Query returns one page of reservations matching filter, ordered by
// window start. An empty page is not an error.
func (m *ReservationManager) Query(ctx context.Context, filter domain.QueryFilter) ([]domain.Reservation, error) {
	filter = filter.Truncate()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if _, err := domain.StatusFromRaw(int32(filter.Status)); err != nil {
		return nil, err
	}

	ctx, cancel := m.storageContext(ctx)
	defer cancel()

	out, err := m.repo.Query(ctx, filter)
	if err != nil {
		return nil, classify("query", err)
	}
	if out == nil {
		out = []domain.Reservation{}
	}
	return out, nil
}

func (m *ReservationManager) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.timeout)
}

// publish emits event after a committed mutation. The mutation stands even
// if the event cannot be enqueued, so failures are logged and not returned.
func (m *ReservationManager) publish(ctx context.Context, event domain.Event, r domain.Reservation) {
	if err := m.publisher.Publish(ctx, event, r); err != nil {
		m.log.Error("publishing reservation event",
			zap.String("event", string(event)),
			zap.Stringer("reservation_id", r.ID),
			zap.Error(err),
		)
	}
}

// classify maps repository failures that are not already domain errors
// to *domain.StorageError, keeping the cause.
func classify(op string, err error) error {
	if domain.IsDomainError(err) {
		return err
	}
	return &domain.StorageError{
		Op:      op,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}
