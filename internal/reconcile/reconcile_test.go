package reconcile

import (
	"reflect"
	"testing"
	"time"
)

var jan10 = Date{Year: 2024, Month: time.January, Day: 10}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad fixture time %q: %v", s, err)
	}
	return v
}

func newTestReconciler() *Reconciler {
	return NewReconciler(NewNormalizer(time.UTC))
}

func TestReconcileMergeScenario(t *testing.T) {
	students := []RawStudent{{
		Name:        "Ada Lovelace",
		IndexNumber: "s001",
		AttendanceHistory: []RawAttendanceEvent{
			{Date: "2024-01-10", Status: "entered", EntryTime: "2024-01-10T09:00:00Z"},
			{Date: "2024-01-10", Status: "left", LeaveTime: "2024-01-10T17:00:00Z"},
		},
	}}

	got := newTestReconciler().Reconcile(students, jan10)
	if len(got) != 1 {
		t.Fatalf("expected one state, got %d", len(got))
	}
	st := got[0]
	if st.Identity != "S001" || st.Key != "S001@2024-01-10" {
		t.Fatalf("unexpected identity/key %q/%q", st.Identity, st.Key)
	}
	if st.Status != StatusLeft || st.Label != "Left" {
		t.Fatalf("expected left, got %q (%s)", st.Status, st.Label)
	}
	if st.EntryTime == nil || !st.EntryTime.Equal(mustTime(t, "2024-01-10T09:00:00Z")) {
		t.Fatalf("unexpected entry time %v", st.EntryTime)
	}
	if st.LeaveTime == nil || !st.LeaveTime.Equal(mustTime(t, "2024-01-10T17:00:00Z")) {
		t.Fatalf("unexpected leave time %v", st.LeaveTime)
	}
	if !st.LastObservedAt.Equal(mustTime(t, "2024-01-10T17:00:00Z")) {
		t.Fatalf("unexpected lastObservedAt %s", st.LastObservedAt)
	}
}

func TestReconcileLastObservedWinsRegardlessOfOrder(t *testing.T) {
	older := RawAttendanceEvent{Date: "2024-01-10", Status: "present", UpdatedAt: "2024-01-10T08:00:00Z"}
	newer := RawAttendanceEvent{Date: "2024-01-10", Status: "late", UpdatedAt: "2024-01-10T10:00:00Z"}

	for name, history := range map[string][]RawAttendanceEvent{
		"newer last":  {older, newer},
		"newer first": {newer, older},
	} {
		t.Run(name, func(t *testing.T) {
			got := newTestReconciler().Reconcile([]RawStudent{{IndexNumber: "S1", AttendanceHistory: history}}, jan10)
			if got[0].Status != StatusLate {
				t.Fatalf("expected late, got %q", got[0].Status)
			}
		})
	}
}

func TestReconcileTieKeepsFirstSeen(t *testing.T) {
	students := []RawStudent{{
		IndexNumber: "S1",
		AttendanceHistory: []RawAttendanceEvent{
			{Date: "2024-01-10", Status: "late"},
			{Date: "2024-01-10", Status: "absent"},
		},
	}}
	got := newTestReconciler().Reconcile(students, jan10)
	if got[0].Status != StatusLate {
		t.Fatalf("expected first seen status late, got %q", got[0].Status)
	}
}

func TestReconcileWidensEntryAndLeave(t *testing.T) {
	students := []RawStudent{{
		IndexNumber: "S1",
		AttendanceHistory: []RawAttendanceEvent{
			{Date: "2024-01-10", Status: "left", LeaveTime: "2024-01-10T17:00:00Z"},
			{Date: "2024-01-10", Status: "entered", EntryTime: "2024-01-10T09:00:00Z"},
			{Date: "2024-01-10", Status: "entered", EntryTime: "2024-01-10T08:30:00Z"},
		},
	}}
	st := newTestReconciler().Reconcile(students, jan10)[0]
	if st.EntryTime == nil || !st.EntryTime.Equal(mustTime(t, "2024-01-10T09:00:00Z")) {
		t.Fatalf("expected latest entry 09:00, got %v", st.EntryTime)
	}
	if st.LeaveTime == nil || !st.LeaveTime.Equal(mustTime(t, "2024-01-10T17:00:00Z")) {
		t.Fatalf("expected leave 17:00, got %v", st.LeaveTime)
	}
	if st.Status != StatusLeft {
		t.Fatalf("leave at 17:00 is the freshest event, got %q", st.Status)
	}
}

func TestReconcileDefaultsAndFallbacks(t *testing.T) {
	students := []RawStudent{
		{IndexNumber: "a1", Name: "No History"},
		{IndexNumber: "a2", Name: "Top Level", Status: "Present"},
		{IndexNumber: "a3", Name: "Other Day", AttendanceHistory: []RawAttendanceEvent{
			{Date: "2024-01-09", Status: "present"},
		}},
		{IndexNumber: "a4", Status: "excused"},
	}
	got := newTestReconciler().Reconcile(students, jan10)
	if len(got) != 4 {
		t.Fatalf("expected 4 states, got %d", len(got))
	}
	want := []StatusCode{StatusAbsent, StatusPresent, StatusAbsent, StatusUnknown}
	for i, st := range got {
		if st.Status != want[i] {
			t.Errorf("%s: expected %q, got %q", st.Identity, want[i], st.Status)
		}
		if st.EntryTime != nil || st.LeaveTime != nil {
			t.Errorf("%s: fallback state must not carry times", st.Identity)
		}
	}
	if got[3].DisplayName != "N/A" || got[3].Label != "Unknown" {
		t.Fatalf("unexpected fallback naming %q/%q", got[3].DisplayName, got[3].Label)
	}
}

func TestReconcileOneStatePerIdentity(t *testing.T) {
	students := []RawStudent{
		{IndexNumber: " s9 ", Name: "Live Feed", AttendanceHistory: []RawAttendanceEvent{
			{Date: "2024-01-10", Status: "entered", EntryTime: "2024-01-10T09:00:00Z"},
		}},
		{IndexNumber: "S9", Email: "s9@example.edu", AttendanceHistory: []RawAttendanceEvent{
			{Date: "2024-01-10", Status: "left", LeaveTime: "2024-01-10T16:00:00Z"},
		}},
		{ID: "abc", Name: "No Index"},
		{Name: "Nothing At All"},
	}
	got := newTestReconciler().Reconcile(students, jan10)
	if len(got) != 3 {
		t.Fatalf("expected 3 states, got %d", len(got))
	}
	if got[0].Identity != "S9" || got[0].Status != StatusLeft || got[0].Email != "s9@example.edu" || got[0].DisplayName != "Live Feed" {
		t.Fatalf("unexpected merged state %+v", got[0])
	}
	if got[1].Identity != "ABC" {
		t.Fatalf("expected id fallback ABC, got %q", got[1].Identity)
	}
	if got[2].Identity != "N/A-4" {
		t.Fatalf("expected positional identity, got %q", got[2].Identity)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	students := []RawStudent{
		{IndexNumber: "b2", AttendanceHistory: []RawAttendanceEvent{
			{Date: "2024-01-10T10:00:00Z", Status: "late", EntryTime: "2024-01-10T10:00:00Z"},
		}},
		{IndexNumber: "b1", Status: "left"},
	}
	r := newTestReconciler()
	first := r.Reconcile(students, jan10)
	second := r.Reconcile(students, jan10)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("passes differ:\n%+v\n%+v", first, second)
	}
}

func TestReconcileEmptyInput(t *testing.T) {
	got := newTestReconciler().Reconcile(nil, jan10)
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
	if stats := Aggregate(got, nil); stats != (AggregateStats{}) {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestReconcileFallbackIdentityNeverMergesWithIndex(t *testing.T) {
	tests := []struct {
		name     string
		students []RawStudent
		want     []string
	}{
		{
			name: "positional against real index",
			students: []RawStudent{
				{Name: "No Index", Status: "present"},
				{Name: "Real Student", IndexNumber: "n/a-1", Status: "late"},
			},
			want: []string{"N/A-1~2", "N/A-1"},
		},
		{
			name: "id against real index",
			students: []RawStudent{
				{ID: "s001", Name: "Only Id", Status: "present"},
				{Name: "Indexed", IndexNumber: "S001", Status: "absent"},
			},
			want: []string{"S001~2", "S001"},
		},
		{
			name: "same id is one student",
			students: []RawStudent{
				{ID: "x9", Name: "Twice"},
				{ID: "X9"},
			},
			want: []string{"X9"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestReconciler().Reconcile(tt.students, jan10)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d states, got %d: %+v", len(tt.want), len(got), got)
			}
			keys := make(map[string]bool, len(got))
			for i, st := range got {
				if st.Identity != tt.want[i] {
					t.Fatalf("state %d identity = %q, want %q", i, st.Identity, tt.want[i])
				}
				if keys[st.Key] {
					t.Fatalf("duplicate render key %q", st.Key)
				}
				keys[st.Key] = true
			}
		})
	}
}
