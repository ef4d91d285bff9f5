package reconcile

import (
	"errors"
	"strings"
)

// StatusCode is the canonical attendance status after normalization.
type StatusCode string

const (
	StatusPresent StatusCode = "present"
	StatusLeft    StatusCode = "left"
	StatusLate    StatusCode = "late"
	StatusAbsent  StatusCode = "absent"
	StatusUnknown StatusCode = "unknown"
)

// ErrInvalidStatusFilter is returned for a status filter outside the vocabulary.
var ErrInvalidStatusFilter = errors.New("invalid status filter")

// ParseStatus maps free text onto a StatusCode. "entered" is a synonym of present.
func ParseStatus(s string) StatusCode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "entered", "present":
		return StatusPresent
	case "left":
		return StatusLeft
	case "late":
		return StatusLate
	case "absent":
		return StatusAbsent
	default:
		return StatusUnknown
	}
}

// Known reports whether s is part of the status vocabulary.
func Known(s string) bool {
	return ParseStatus(s) != StatusUnknown
}

// priority gives the display rank; lower sorts first.
func (s StatusCode) priority() int {
	switch s {
	case StatusPresent:
		return 0
	case StatusLeft:
		return 1
	case StatusLate:
		return 2
	case StatusAbsent:
		return 3
	default:
		return 4
	}
}

// Label returns the human readable label for a status spelling.
// Both "entered" and "present" render as "Present".
func Label(spelling string) string {
	switch ParseStatus(spelling) {
	case StatusPresent:
		return "Present"
	case StatusLeft:
		return "Left"
	case StatusLate:
		return "Late"
	case StatusAbsent:
		return "Absent"
	default:
		return "Unknown"
	}
}

// StatusFilter selects a single status or every status.
type StatusFilter struct {
	all    bool
	status StatusCode
}

// FilterAll matches every status.
var FilterAll = StatusFilter{all: true}

// FilterStatus matches exactly one status.
func FilterStatus(s StatusCode) StatusFilter {
	return StatusFilter{status: s}
}

// ParseStatusFilter accepts "all", "" or a status of the vocabulary
// (including "unknown").
func ParseStatusFilter(s string) (StatusFilter, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "all":
		return FilterAll, nil
	case string(StatusUnknown):
		return FilterStatus(StatusUnknown), nil
	}
	code := ParseStatus(v)
	if code == StatusUnknown {
		return StatusFilter{}, ErrInvalidStatusFilter
	}
	return FilterStatus(code), nil
}

func (f StatusFilter) match(s StatusCode) bool {
	return f.all || f.status == s
}

func (f StatusFilter) String() string {
	if f.all {
		return "all"
	}
	return string(f.status)
}
