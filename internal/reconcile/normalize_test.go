package reconcile

import (
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want StatusCode
	}{
		{in: "entered", want: StatusPresent},
		{in: "  PRESENT ", want: StatusPresent},
		{in: "Left", want: StatusLeft},
		{in: "late", want: StatusLate},
		{in: "ABSENT", want: StatusAbsent},
		{in: "excused", want: StatusUnknown},
		{in: "", want: StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseStatus(tt.in); got != tt.want {
				t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if Label("entered") != "Present" || Label("present") != "Present" {
		t.Fatalf("entered and present must both render as Present")
	}
	if got := Label("excused"); got != "Unknown" {
		t.Fatalf("expected Unknown, got %q", got)
	}
}

func TestNormalizeTimes(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("zoneinfo unavailable: %v", err)
	}
	n := NewNormalizer(rome)
	var failures []string
	n.OnParseError = func(field, value string, err error) {
		failures = append(failures, field)
	}

	evt := n.Normalize(RawAttendanceEvent{
		Status:    "Entered",
		EntryTime: "2024-01-10T09:00:00",
		LeaveTime: "not-a-time",
	})
	if evt.Status != StatusPresent || evt.Spelling != "entered" {
		t.Fatalf("unexpected status %q/%q", evt.Status, evt.Spelling)
	}
	if evt.EntryTime == nil {
		t.Fatalf("expected entry time")
	}
	want := time.Date(2024, 1, 10, 9, 0, 0, 0, rome)
	if !evt.EntryTime.Equal(want) {
		t.Fatalf("expected %s, got %s", want, evt.EntryTime)
	}
	if evt.LeaveTime != nil {
		t.Fatalf("malformed leave time must be nil, got %v", evt.LeaveTime)
	}
	if len(failures) != 1 || failures[0] != "leaveTime" {
		t.Fatalf("expected one leaveTime failure, got %v", failures)
	}
	if !evt.ObservedAt.Equal(want) {
		t.Fatalf("observedAt should fall back to entry time, got %s", evt.ObservedAt)
	}
}

func TestNormalizeObservedAtPriority(t *testing.T) {
	n := NewNormalizer(time.UTC)

	tests := []struct {
		name string
		raw  RawAttendanceEvent
		want time.Time
	}{
		{
			name: "updatedAt wins",
			raw:  RawAttendanceEvent{EntryTime: "2024-01-10T09:00:00Z", UpdatedAt: "2024-01-10T12:00:00Z"},
			want: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "entry before leave",
			raw:  RawAttendanceEvent{EntryTime: "2024-01-10T09:00:00Z", LeaveTime: "2024-01-10T17:00:00Z"},
			want: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "leave only",
			raw:  RawAttendanceEvent{LeaveTime: "2024-01-10T17:00:00Z"},
			want: time.Date(2024, 1, 10, 17, 0, 0, 0, time.UTC),
		},
		{
			name: "bad updatedAt falls through",
			raw:  RawAttendanceEvent{LeaveTime: "2024-01-10T17:00:00Z", UpdatedAt: "yesterday"},
			want: time.Date(2024, 1, 10, 17, 0, 0, 0, time.UTC),
		},
		{
			name: "nothing known",
			raw:  RawAttendanceEvent{Status: "late"},
			want: time.Time{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.raw).ObservedAt
			if !got.Equal(tt.want) {
				t.Errorf("ObservedAt = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDayOf(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "2024-01-10", want: "2024-01-10", ok: true},
		{raw: "2024-01-10T20:00:00Z", want: "2024-01-11", ok: true},
		{raw: "2024-01-10T01:00:00+09:00", want: "2024-01-10", ok: true},
		{raw: "", ok: false},
		{raw: "10/01/2024", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := dayOf(tt.raw, tokyo)
			if ok != tt.ok {
				t.Fatalf("dayOf(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if ok && got.String() != tt.want {
				t.Fatalf("dayOf(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if _, err := ParseDate("2024-13-40"); err == nil {
		t.Fatalf("expected error")
	}
	d, err := ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("unexpected date %s", d)
	}
}
