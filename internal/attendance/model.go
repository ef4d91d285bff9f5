package attendance

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a student or event does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an index number is already registered.
	ErrDuplicate = errors.New("index number already registered")
	// ErrInvalid wraps validation failures on write operations.
	ErrInvalid = errors.New("invalid input")
)

// Student is a registered student.
type Student struct {
	ID          string    `json:"id"`
	IndexNumber string    `json:"indexNumber"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Name joins first and last name.
func (s Student) Name() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Event is one stored attendance record for a student and day.
type Event struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"studentId"`
	IndexNumber string     `json:"indexNumber,omitempty"`
	Day         time.Time  `json:"day"`
	Status      string     `json:"status"`
	EntryTime   *time.Time `json:"entryTime,omitempty"`
	LeaveTime   *time.Time `json:"leaveTime,omitempty"`
	Source      string     `json:"source,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
