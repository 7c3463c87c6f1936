package otel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/rsvp/internal/domain"
)

const tracerName = "github.com/neomorfeo/rsvp/internal/adapter/otel"

// TracingRepository wraps a domain.ReservationRepository with OpenTelemetry tracing.
// Each method creates a span with reservation attributes and records errors.
type TracingRepository struct {
	next   domain.ReservationRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.ReservationRepository.
var _ domain.ReservationRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.ReservationRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Insert(ctx context.Context, rsvp domain.Reservation) (domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.Insert",
		trace.WithAttributes(
			attribute.String("reservation.user_id", rsvp.UserID),
			attribute.String("reservation.resource_id", rsvp.ResourceID),
			attribute.String("reservation.status", rsvp.Status.String()),
			attribute.String("reservation.start", rsvp.Window.Start.Format(time.RFC3339)),
			attribute.String("reservation.end", rsvp.Window.End.Format(time.RFC3339)),
		),
	)
	defer span.End()

	created, err := r.next.Insert(ctx, rsvp)
	if err != nil {
		recordError(span, err)
		return created, err
	}
	span.SetAttributes(attribute.String("reservation.id", created.ID.String()))
	return created, nil
}

func (r *TracingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.UpdateStatus",
		trace.WithAttributes(
			attribute.String("reservation.id", id.String()),
			attribute.String("status.from", from.String()),
			attribute.String("status.to", to.String()),
		),
	)
	defer span.End()

	updated, err := r.next.UpdateStatus(ctx, id, from, to)
	if err != nil {
		recordError(span, err)
	}
	return updated, err
}

func (r *TracingRepository) UpdateNote(ctx context.Context, id uuid.UUID, note string) (domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.UpdateNote",
		trace.WithAttributes(
			attribute.String("reservation.id", id.String()),
			attribute.Int("note.length", len(note)),
		),
	)
	defer span.End()

	updated, err := r.next.UpdateNote(ctx, id, note)
	if err != nil {
		recordError(span, err)
	}
	return updated, err
}

func (r *TracingRepository) Delete(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.Delete",
		trace.WithAttributes(attribute.String("reservation.id", id.String())),
	)
	defer span.End()

	deleted, err := r.next.Delete(ctx, id)
	if err != nil {
		recordError(span, err)
	}
	return deleted, err
}

func (r *TracingRepository) Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.Get",
		trace.WithAttributes(attribute.String("reservation.id", id.String())),
	)
	defer span.End()

	rsvp, err := r.next.Get(ctx, id)
	if err != nil {
		recordError(span, err)
	}
	return rsvp, err
}

func (r *TracingRepository) Query(ctx context.Context, filter domain.QueryFilter) ([]domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.Query",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit()),
			attribute.Int("filter.offset", filter.Offset()),
			attribute.Bool("filter.desc", filter.Desc),
		),
	)
	defer span.End()

	if status, ok := filter.EffectiveStatus(); ok {
		span.SetAttributes(attribute.String("filter.status", status))
	}
	if resourceID, ok := filter.EffectiveResourceID(); ok {
		span.SetAttributes(attribute.String("filter.resource_id", resourceID))
	}

	reservations, err := r.next.Query(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(reservations)))
	}
	return reservations, err
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
