package reconcile

import (
	"slices"
	"strings"
)

// Order returns a copy of states sorted by status priority
// (present, left, late, absent, unknown) and then by identity.
func Order(states []StudentAttendanceState) []StudentAttendanceState {
	out := slices.Clone(states)
	slices.SortStableFunc(out, compareStates)
	return out
}

func compareStates(a, b StudentAttendanceState) int {
	if pa, pb := a.Status.priority(), b.Status.priority(); pa != pb {
		return pa - pb
	}
	return strings.Compare(a.Identity, b.Identity)
}
