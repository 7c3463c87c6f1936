package domain_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/neomorfeo/rsvp/internal/domain"
)

func TestQueryFilter_EffectiveValues_Empty(t *testing.T) {
	var q domain.QueryFilter

	if _, ok := q.EffectiveStatus(); ok {
		t.Error("unknown status should mean no status filter")
	}
	if _, ok := q.EffectiveUserID(); ok {
		t.Error("empty user id should mean no user filter")
	}
	if _, ok := q.EffectiveResourceID(); ok {
		t.Error("empty resource id should mean no resource filter")
	}
	if b := q.EffectiveWindow(); b.Start != nil || b.End != nil {
		t.Error("absent bounds should stay unbounded")
	}
	if _, ok := q.EffectivePage(); ok {
		t.Error("zero page should defer to default")
	}
	if _, ok := q.EffectivePageSize(); ok {
		t.Error("zero page size should defer to default")
	}
}

func TestQueryFilter_EffectiveValues_Set(t *testing.T) {
	q, err := domain.NewQueryBuilder().
		UserID("Syuu").
		ResourceID("room-1").
		Status(domain.StatusConfirmed).
		Page(2).
		PageSize(5).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if s, ok := q.EffectiveStatus(); !ok || s != "confirmed" {
		t.Errorf("EffectiveStatus() = %q, %v", s, ok)
	}
	if u, ok := q.EffectiveUserID(); !ok || u != "Syuu" {
		t.Errorf("EffectiveUserID() = %q, %v", u, ok)
	}
	if r, ok := q.EffectiveResourceID(); !ok || r != "room-1" {
		t.Errorf("EffectiveResourceID() = %q, %v", r, ok)
	}
	if p, ok := q.EffectivePage(); !ok || p != 2 {
		t.Errorf("EffectivePage() = %d, %v", p, ok)
	}
	if q.Limit() != 5 || q.Offset() != 5 {
		t.Errorf("Limit/Offset = %d/%d, want 5/5", q.Limit(), q.Offset())
	}
}

func TestQueryFilter_Paging(t *testing.T) {
	cases := []struct {
		page, size        int
		wantLimit, wantOf int
	}{
		{0, 0, domain.DefaultPageSize, 0},
		{-3, -1, domain.DefaultPageSize, 0},
		{3, 0, domain.DefaultPageSize, 2 * domain.DefaultPageSize},
		{1, 1000, domain.MaxPageSize, 0},
		{4, 25, 25, 75},
		{math.MaxInt, 100, 100, math.MaxInt},
		{math.MaxInt / 10, 100, 100, math.MaxInt},
		{math.MaxInt/domain.MaxPageSize + 1, 100, 100, math.MaxInt / domain.MaxPageSize * domain.MaxPageSize},
	}

	for _, tc := range cases {
		q := domain.QueryFilter{Page: tc.page, PageSize: tc.size}
		if q.Limit() != tc.wantLimit || q.Offset() != tc.wantOf {
			t.Errorf("page=%d size=%d: Limit/Offset = %d/%d, want %d/%d",
				tc.page, tc.size, q.Limit(), q.Offset(), tc.wantLimit, tc.wantOf)
		}
	}
}

func TestQueryBuilder_WindowValidation(t *testing.T) {
	start := time.Date(2022, 11, 18, 12, 0, 0, 0, time.UTC)

	if _, err := domain.NewQueryBuilder().Start(start).End(start.Add(time.Hour)).Build(); err != nil {
		t.Errorf("ordered window: unexpected error: %v", err)
	}

	_, err := domain.NewQueryBuilder().Start(start).End(start).Build()
	if !errors.Is(err, domain.ErrInvalidTimespan) {
		t.Errorf("empty window: expected ErrInvalidTimespan, got %v", err)
	}

	_, err = domain.NewQueryBuilder().Start(start.Add(time.Hour)).End(start).Build()
	if !errors.Is(err, domain.ErrInvalidTimespan) {
		t.Errorf("reversed window: expected ErrInvalidTimespan, got %v", err)
	}

	// A single bound is an open-ended range.
	q, err := domain.NewQueryBuilder().Start(start).Build()
	if err != nil {
		t.Fatalf("start only: unexpected error: %v", err)
	}
	if b := q.EffectiveWindow(); b.Start == nil || b.End != nil {
		t.Errorf("start only: bounds = %+v", b)
	}

	if _, err := domain.NewQueryBuilder().End(start).Build(); err != nil {
		t.Errorf("end only: unexpected error: %v", err)
	}
}

func TestQueryFilter_Truncate(t *testing.T) {
	start := time.Date(2022, 11, 18, 4, 0, 0, 999, time.UTC)
	end := start.Add(time.Hour)

	q := domain.QueryFilter{Start: &start, End: &end}.Truncate()
	if q.Start.Nanosecond() != 0 || q.End.Nanosecond() != 0 {
		t.Errorf("bounds = %v/%v, want whole microseconds", q.Start, q.End)
	}
	if start.Nanosecond() != 999 {
		t.Error("Truncate must not modify the caller's bounds")
	}

	if open := (domain.QueryFilter{}).Truncate(); open.Start != nil || open.End != nil {
		t.Error("unbounded filter should stay unbounded")
	}
}
