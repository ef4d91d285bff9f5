package reconcile

import (
	"errors"
	"strings"
	"time"
)

var errEmptyTime = errors.New("empty time")

// instantLayouts are tried in order. Layouts without an offset are read
// in the normalizer's location.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// Normalizer turns raw attendance records into NormalizedEvents.
type Normalizer struct {
	// Location interprets zone-less timestamps and calendar days.
	Location *time.Location
	// OnParseError, when set, is called for every time field that could
	// not be parsed. The field is dropped either way.
	OnParseError func(field, value string, err error)
}

// NewNormalizer returns a Normalizer bound to loc (UTC when nil).
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{Location: loc}
}

// Normalize converts one raw record. It never fails: malformed times
// become nil and unknown statuses become StatusUnknown.
func (n *Normalizer) Normalize(raw RawAttendanceEvent) NormalizedEvent {
	evt := NormalizedEvent{
		Status:    ParseStatus(raw.Status),
		Spelling:  strings.ToLower(strings.TrimSpace(raw.Status)),
		EntryTime: n.parseField("entryTime", raw.EntryTime),
		LeaveTime: n.parseField("leaveTime", raw.LeaveTime),
	}
	switch updated := n.parseField("updatedAt", raw.UpdatedAt); {
	case updated != nil:
		evt.ObservedAt = *updated
	case evt.EntryTime != nil:
		evt.ObservedAt = *evt.EntryTime
	case evt.LeaveTime != nil:
		evt.ObservedAt = *evt.LeaveTime
	}
	return evt
}

func (n *Normalizer) parseField(field, value string) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	t, err := parseInstant(value, n.loc())
	if err != nil {
		if n.OnParseError != nil {
			n.OnParseError(field, value, err)
		}
		return nil
	}
	return &t
}

func (n *Normalizer) loc() *time.Location {
	if n == nil || n.Location == nil {
		return time.UTC
	}
	return n.Location
}

func parseInstant(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errEmptyTime
	}
	var firstErr error
	for _, layout := range instantLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
