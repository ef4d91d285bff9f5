package reconcile

// Aggregate counts states per status. Server-reported values take
// precedence over local ones when present and non-zero, so a paginated
// fetch still shows counts for the whole population.
func Aggregate(states []StudentAttendanceState, server *ServerStats) AggregateStats {
	var stats AggregateStats
	for _, st := range states {
		switch st.Status {
		case StatusPresent:
			stats.Present++
		case StatusLeft:
			stats.Left++
		case StatusAbsent:
			stats.Absent++
		case StatusLate:
			stats.Late++
		default:
			stats.Unknown++
		}
	}
	stats.Total = len(states)

	if server == nil {
		return stats
	}
	stats.Total = prefer(server.TotalCount, stats.Total)
	stats.Present = prefer(server.PresentCount, stats.Present)
	stats.Left = prefer(server.LeftCount, stats.Left)
	stats.Absent = prefer(server.AbsentCount, stats.Absent)
	stats.Late = prefer(server.LateCount, stats.Late)
	return stats
}

func prefer(server *int, local int) int {
	if server != nil && *server > 0 {
		return *server
	}
	return local
}
