package postgres

import (
	"testing"
	"time"
)

func TestParseConflictDetail(t *testing.T) {
	cases := []struct {
		name   string
		detail string
		start  time.Time
		end    time.Time
		ok     bool
	}{
		{
			name: "exclusive bounds",
			detail: `Key (resource_id, timespan)=(room-1, ("2022-11-17 04:00:00+00","2022-11-29 06:00:00+00")) ` +
				`conflicts with existing key (resource_id, timespan)=(room-1, ("2022-11-18 04:00:00+00","2022-11-20 06:00:00+00")).`,
			start: time.Date(2022, 11, 18, 4, 0, 0, 0, time.UTC),
			end:   time.Date(2022, 11, 20, 6, 0, 0, 0, time.UTC),
			ok:    true,
		},
		{
			name: "fractional seconds and offset",
			detail: `Key (resource_id, timespan)=(hotel room 1, ("2022-11-18 12:00:00+08","2022-11-20 14:00:00+08")) ` +
				`conflicts with existing key (resource_id, timespan)=(hotel room 1, ["2022-11-18 12:30:00.5+05:30","2022-11-19 00:00:00+05:30")).`,
			start: time.Date(2022, 11, 18, 7, 0, 0, 500_000_000, time.UTC),
			end:   time.Date(2022, 11, 18, 18, 30, 0, 0, time.UTC),
			ok:    true,
		},
		{name: "empty", detail: "", ok: false},
		{name: "unrelated", detail: "Key (id)=(1) already exists.", ok: false},
		{
			name:   "bad timestamp",
			detail: `conflicts with existing key (resource_id, timespan)=(r, ("tomorrow","later")).`,
			ok:     false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseConflictDetail(tc.detail)
			if !tc.ok {
				if got != nil {
					t.Errorf("got %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("got nil window")
			}
			if !got.Start.Equal(tc.start) || !got.End.Equal(tc.end) {
				t.Errorf("window = %v..%v, want %v..%v", got.Start, got.End, tc.start, tc.end)
			}
		})
	}
}
