package otel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"

	adapter "github.com/neomorfeo/rsvp/internal/adapter/otel"
	"github.com/neomorfeo/rsvp/internal/domain"
)

type mockPublisher struct {
	events []domain.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, e domain.Event, _ domain.Reservation) error {
	m.events = append(m.events, e)
	return m.err
}

func TestTracingPublisher_Publish_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := &mockPublisher{}
	pub := adapter.NewTracingPublisher(inner)

	r := domain.NewReservation("u-1", "room-1", start, start.Add(time.Hour), "")
	if err := pub.Publish(context.Background(), domain.EventConfirm, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "EventPublisher.Publish" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "EventPublisher.Publish")
	}

	assertAttribute(t, spans[0], "event.type", "confirm")
	assertAttribute(t, spans[0], "reservation.resource_id", "room-1")

	if len(inner.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(inner.events))
	}
}

func TestTracingPublisher_Publish_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	pub := adapter.NewTracingPublisher(&mockPublisher{err: errors.New("publish failed")})

	r := domain.NewReservation("u-1", "room-1", start, start.Add(time.Hour), "")
	if err := pub.Publish(context.Background(), domain.EventDelete, r); err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}
