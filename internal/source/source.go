// Package source fetches the raw snapshots consumed by the reconciliation
// pipeline, either from the local attendance store or from an upstream API.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"attendboard/internal/attendance"
	"attendboard/internal/reconcile"
)

// FetchOptions selects the day and page of students to fetch.
type FetchOptions struct {
	Date   reconcile.Date
	Limit  int
	Offset int
}

// Fetcher loads raw attendance data.
type Fetcher interface {
	Fetch(ctx context.Context, opts FetchOptions) (reconcile.Snapshot, error)
}

// NetworkError reports a transport failure talking to a data source.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: network: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a data source that answered with a failure.
type ServerError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// Kind classifies a fetch error as "network", "server" or "internal".
func Kind(err error) string {
	var netErr *NetworkError
	var srvErr *ServerError
	switch {
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &srvErr):
		return "server"
	default:
		return "internal"
	}
}

// Store reads snapshots from the attendance store.
type Store struct {
	store attendance.Store
}

// NewStore creates a fetcher over an attendance store.
func NewStore(store attendance.Store) *Store {
	return &Store{store: store}
}

// Fetch returns a page of students with their events for the requested
// day. The total student count is reported as a server figure so the stat
// cards stay correct on paginated fetches.
func (s *Store) Fetch(ctx context.Context, opts FetchOptions) (reconcile.Snapshot, error) {
	students, err := s.store.ListStudents(ctx, opts.Limit, opts.Offset)
	if err != nil {
		return reconcile.Snapshot{}, fmt.Errorf("list students: %w", err)
	}
	events, err := s.store.ListEventsForDay(ctx, opts.Date.Start(time.UTC))
	if err != nil {
		return reconcile.Snapshot{}, fmt.Errorf("list events: %w", err)
	}
	total, err := s.store.CountStudents(ctx)
	if err != nil {
		return reconcile.Snapshot{}, fmt.Errorf("count students: %w", err)
	}

	byStudent := make(map[string][]reconcile.RawAttendanceEvent, len(events))
	for _, e := range events {
		byStudent[e.StudentID] = append(byStudent[e.StudentID], rawEvent(e))
	}

	snap := reconcile.Snapshot{
		Students: make([]reconcile.RawStudent, 0, len(students)),
		Stats:    &reconcile.ServerStats{TotalCount: &total},
	}
	for _, st := range students {
		snap.Students = append(snap.Students, reconcile.RawStudent{
			ID:                st.ID,
			Name:              st.Name(),
			IndexNumber:       st.IndexNumber,
			Email:             st.Email,
			Status:            st.Status,
			AttendanceHistory: byStudent[st.ID],
		})
	}
	return snap, nil
}

func rawEvent(e attendance.Event) reconcile.RawAttendanceEvent {
	return reconcile.RawAttendanceEvent{
		Date:      e.Day.UTC().Format("2006-01-02"),
		Status:    e.Status,
		EntryTime: formatTime(e.EntryTime),
		LeaveTime: formatTime(e.LeaveTime),
		UpdatedAt: formatTime(&e.UpdatedAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
