package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"attendboard/internal/reconcile"
)

const (
	maxNameWidth = 28
	columnGap    = "  "
	emptyCell    = "-"
)

var tableHeader = []string{"INDEX", "NAME", "STATUS", "ENTRY", "LEAVE"}

// formatTable lays out states in aligned columns. Widths are measured in
// terminal cells so wide names keep the columns straight.
func formatTable(states []reconcile.StudentAttendanceState, loc *time.Location) string {
	rows := make([][]string, 0, len(states)+1)
	rows = append(rows, tableHeader)
	for _, s := range states {
		rows = append(rows, []string{
			s.Identity,
			runewidth.Truncate(s.DisplayName, maxNameWidth, "…"),
			s.Label,
			clock(s.EntryTime, loc),
			clock(s.LeaveTime, loc),
		})
	}

	widths := make([]int, len(tableHeader))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString(columnGap)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func clock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return emptyCell
	}
	return t.In(loc).Format("15:04")
}

func formatStats(date string, s reconcile.AggregateStats) string {
	line := fmt.Sprintf("%s: total %d, present %d, left %d, late %d, absent %d",
		date, s.Total, s.Present, s.Left, s.Late, s.Absent)
	if s.Unknown > 0 {
		line += fmt.Sprintf(", unknown %d", s.Unknown)
	}
	return line
}
