package fsm_test

import (
	"context"
	"errors"
	"testing"

	adapter "github.com/neomorfeo/rsvp/internal/adapter/fsm"
	"github.com/neomorfeo/rsvp/internal/domain"
)

func TestValidator_AllTransitions(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, tr := range domain.Transitions {
		dst, err := v.Apply(ctx, tr.Src, tr.Event)
		if err != nil {
			t.Errorf("Apply(%q, %q) unexpected error: %v", tr.Src, tr.Event, err)
			continue
		}
		if dst != tr.Dst {
			t.Errorf("Apply(%q, %q) = %q, want %q", tr.Src, tr.Event, dst, tr.Dst)
		}
	}
}

func TestValidator_ConfirmPending(t *testing.T) {
	got, err := adapter.New().Apply(context.Background(), domain.StatusPending, domain.EventConfirm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != domain.StatusConfirmed {
		t.Errorf("got %q, want %q", got, domain.StatusConfirmed)
	}
}

func TestValidator_InvalidTransitions(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	cases := []struct {
		from  domain.Status
		event domain.Event
	}{
		{domain.StatusConfirmed, domain.EventConfirm},
		{domain.StatusBlocked, domain.EventConfirm},
		{domain.StatusUnknown, domain.EventConfirm},
		// Not a lifecycle event at all.
		{domain.StatusPending, domain.EventDelete},
	}

	for _, tc := range cases {
		_, err := v.Apply(ctx, tc.from, tc.event)
		var trErr *domain.TransitionError
		if !errors.As(err, &trErr) {
			t.Errorf("Apply(%q, %q): expected TransitionError, got %v", tc.from, tc.event, err)
			continue
		}
		if trErr.Event != tc.event || trErr.Current != tc.from {
			t.Errorf("TransitionError = %+v, want event %q from %q", trErr, tc.event, tc.from)
		}
	}
}
