package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/rsvp/internal/domain"
)

var _ domain.EventPublisher = (*TracingPublisher)(nil)

// TracingPublisher records a span for every reservation event handed to
// the wrapped publisher.
type TracingPublisher struct {
	inner  domain.EventPublisher
	tracer trace.Tracer
}

func NewTracingPublisher(inner domain.EventPublisher) *TracingPublisher {
	return &TracingPublisher{inner: inner, tracer: otel.Tracer(tracerName)}
}

func (p *TracingPublisher) Publish(ctx context.Context, event domain.Event, rsvp domain.Reservation) error {
	ctx, span := p.tracer.Start(ctx, "EventPublisher.Publish", trace.WithAttributes(
		attribute.String("event.type", string(event)),
		attribute.String("reservation.id", rsvp.ID.String()),
		attribute.String("reservation.resource_id", rsvp.ResourceID),
	))
	defer span.End()

	if err := p.inner.Publish(ctx, event, rsvp); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}
