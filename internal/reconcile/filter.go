package reconcile

import "strings"

// Filter keeps the states whose name, identity or email contains query
// (case-insensitive) and whose status matches status. The input slice is
// not modified and its order is preserved.
func Filter(states []StudentAttendanceState, query string, status StatusFilter) []StudentAttendanceState {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]StudentAttendanceState, 0, len(states))
	for _, st := range states {
		if !status.match(st.Status) {
			continue
		}
		if q != "" && !matchesQuery(st, q) {
			continue
		}
		out = append(out, st)
	}
	return out
}

func matchesQuery(st StudentAttendanceState, q string) bool {
	return strings.Contains(strings.ToLower(st.DisplayName), q) ||
		strings.Contains(strings.ToLower(st.Identity), q) ||
		strings.Contains(strings.ToLower(st.Email), q)
}
