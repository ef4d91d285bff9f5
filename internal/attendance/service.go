package attendance

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"attendboard/internal/reconcile"
)

// Store is the persistence the service depends on. *Repository implements it.
type Store interface {
	CreateStudent(ctx context.Context, st Student) (Student, error)
	GetStudent(ctx context.Context, indexNumber string) (Student, error)
	ListStudents(ctx context.Context, limit, offset int) ([]Student, error)
	CountStudents(ctx context.Context) (int, error)
	UpdateStudent(ctx context.Context, st Student) (Student, error)
	DeleteStudent(ctx context.Context, indexNumber string) error
	InsertEvent(ctx context.Context, evt Event) (Event, error)
	RecentEvent(ctx context.Context, studentID, status string, from, to time.Time) (*Event, error)
	ListEventsForDay(ctx context.Context, day time.Time) ([]Event, error)
}

// Service coordinates student management, manual marks and device
// check-ins with deduplication.
type Service struct {
	store       Store
	loc         *time.Location
	dedupWindow time.Duration
	now         func() time.Time
}

// NewService creates a service backed by a store. Days are derived in loc.
func NewService(store Store, loc *time.Location, dedupWindow time.Duration) *Service {
	if dedupWindow <= 0 {
		dedupWindow = 5 * time.Minute
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, loc: loc, dedupWindow: dedupWindow, now: time.Now}
}

// StudentInput carries the writable fields of a student.
type StudentInput struct {
	IndexNumber string `json:"indexNumber"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Status      string `json:"status"`
}

func (in StudentInput) student() (Student, error) {
	st := Student{
		IndexNumber: reconcile.Identity(in.IndexNumber),
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Email:       strings.TrimSpace(in.Email),
		Status:      strings.ToLower(strings.TrimSpace(in.Status)),
	}
	if st.IndexNumber == "" {
		return Student{}, fmt.Errorf("%w: index number required", ErrInvalid)
	}
	if st.Email != "" {
		if _, err := mail.ParseAddress(st.Email); err != nil {
			return Student{}, fmt.Errorf("%w: email %q", ErrInvalid, st.Email)
		}
	}
	if st.Status != "" && !reconcile.Known(st.Status) {
		return Student{}, fmt.Errorf("%w: status %q", ErrInvalid, st.Status)
	}
	return st, nil
}

// CreateStudent validates and stores a new student.
func (s *Service) CreateStudent(ctx context.Context, in StudentInput) (Student, error) {
	st, err := in.student()
	if err != nil {
		return Student{}, err
	}
	return s.store.CreateStudent(ctx, st)
}

// UpdateStudent replaces the student identified by indexNumber.
func (s *Service) UpdateStudent(ctx context.Context, indexNumber string, in StudentInput) (Student, error) {
	in.IndexNumber = indexNumber
	st, err := in.student()
	if err != nil {
		return Student{}, err
	}
	return s.store.UpdateStudent(ctx, st)
}

// GetStudent looks a student up by index number.
func (s *Service) GetStudent(ctx context.Context, indexNumber string) (Student, error) {
	return s.store.GetStudent(ctx, reconcile.Identity(indexNumber))
}

// ListStudents returns a page of students.
func (s *Service) ListStudents(ctx context.Context, limit, offset int) ([]Student, error) {
	return s.store.ListStudents(ctx, limit, offset)
}

// DeleteStudent removes a student and its attendance.
func (s *Service) DeleteStudent(ctx context.Context, indexNumber string) error {
	return s.store.DeleteStudent(ctx, reconcile.Identity(indexNumber))
}

// Mark is a manual attendance entry for a given day.
type Mark struct {
	Date      string     `json:"date"`
	Status    string     `json:"status"`
	EntryTime *time.Time `json:"entryTime"`
	LeaveTime *time.Time `json:"leaveTime"`
}

// MarkAttendance records a manual attendance event for a student.
func (s *Service) MarkAttendance(ctx context.Context, indexNumber string, m Mark) (Event, error) {
	day, err := reconcile.ParseDate(m.Date)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	status := strings.ToLower(strings.TrimSpace(m.Status))
	if !reconcile.Known(status) {
		return Event{}, fmt.Errorf("%w: status %q", ErrInvalid, m.Status)
	}
	st, err := s.store.GetStudent(ctx, reconcile.Identity(indexNumber))
	if err != nil {
		return Event{}, err
	}
	return s.store.InsertEvent(ctx, Event{
		StudentID:   st.ID,
		IndexNumber: st.IndexNumber,
		Day:         day.Start(time.UTC),
		Status:      status,
		EntryTime:   m.EntryTime,
		LeaveTime:   m.LeaveTime,
		Source:      "manual",
		UpdatedAt:   s.now().UTC(),
	})
}

// CheckIn is a device report that a student entered, left or arrived late.
type CheckIn struct {
	IndexNumber string    `json:"indexNumber"`
	Status      string    `json:"status"`
	DeviceID    string    `json:"deviceId"`
	At          time.Time `json:"at"`
}

// CheckIn records a device check-in. A check-in with the same status for
// the same student within the dedup window on either side of At returns
// the existing event.
func (s *Service) CheckIn(ctx context.Context, c CheckIn) (Event, error) {
	status := strings.ToLower(strings.TrimSpace(c.Status))
	switch status {
	case "entered", "left", "late":
	default:
		return Event{}, fmt.Errorf("%w: check-in status %q", ErrInvalid, c.Status)
	}
	if c.DeviceID == "" {
		return Event{}, fmt.Errorf("%w: device required", ErrInvalid)
	}
	st, err := s.store.GetStudent(ctx, reconcile.Identity(c.IndexNumber))
	if err != nil {
		return Event{}, err
	}

	at := c.At
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	if recent, err := s.store.RecentEvent(ctx, st.ID, status, at.Add(-s.dedupWindow), at.Add(s.dedupWindow)); err != nil {
		return Event{}, err
	} else if recent != nil {
		return *recent, nil
	}

	evt := Event{
		StudentID:   st.ID,
		IndexNumber: st.IndexNumber,
		Day:         reconcile.DateOf(at, s.loc).Start(time.UTC),
		Status:      status,
		Source:      "device:" + c.DeviceID,
		UpdatedAt:   at,
	}
	if status == "left" {
		evt.LeaveTime = &at
	} else {
		evt.EntryTime = &at
	}
	return s.store.InsertEvent(ctx, evt)
}
