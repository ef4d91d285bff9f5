package reconcile

import (
	"encoding/json"
	"strings"
	"time"
)

// RawAttendanceEvent is one record of a student's attendance history as
// delivered by the fetch layer. Times are kept as strings; they may be
// empty or malformed.
type RawAttendanceEvent struct {
	Date      string `json:"date"`
	Status    string `json:"status"`
	EntryTime string `json:"entryTime,omitempty"`
	LeaveTime string `json:"leaveTime,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// RawStudent is a student with its attendance history.
type RawStudent struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	IndexNumber       string               `json:"indexNumber"`
	Email             string               `json:"email"`
	Status            string               `json:"status"`
	AttendanceHistory []RawAttendanceEvent `json:"attendanceHistory"`
}

// UnmarshalJSON accepts the alternative field spellings used by upstream
// APIs: _id, firstName+lastName and student_email.
func (s *RawStudent) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID                string               `json:"id"`
		MongoID           string               `json:"_id"`
		Name              string               `json:"name"`
		FirstName         string               `json:"firstName"`
		LastName          string               `json:"lastName"`
		IndexNumber       string               `json:"indexNumber"`
		Email             string               `json:"email"`
		StudentEmail      string               `json:"student_email"`
		Status            string               `json:"status"`
		AttendanceHistory []RawAttendanceEvent `json:"attendanceHistory"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = RawStudent{
		ID:                firstNonEmpty(aux.MongoID, aux.ID),
		Name:              firstNonEmpty(aux.Name, strings.TrimSpace(aux.FirstName+" "+aux.LastName)),
		IndexNumber:       aux.IndexNumber,
		Email:             firstNonEmpty(aux.StudentEmail, aux.Email),
		Status:            aux.Status,
		AttendanceHistory: aux.AttendanceHistory,
	}
	return nil
}

// ServerStats carries optional counts reported by the data source. A nil
// or zero field means "not reported".
type ServerStats struct {
	TotalCount   *int `json:"totalCount,omitempty"`
	PresentCount *int `json:"presentCount,omitempty"`
	LeftCount    *int `json:"leftCount,omitempty"`
	AbsentCount  *int `json:"absentCount,omitempty"`
	LateCount    *int `json:"lateCount,omitempty"`
}

// Snapshot is the fetch result consumed by a reconciliation pass.
type Snapshot struct {
	Students []RawStudent `json:"students"`
	Stats    *ServerStats `json:"stats,omitempty"`
}

// NormalizedEvent is a typed, validated attendance event.
type NormalizedEvent struct {
	Status     StatusCode
	Spelling   string
	EntryTime  *time.Time
	LeaveTime  *time.Time
	ObservedAt time.Time
}

// StudentAttendanceState is the canonical attendance of one student for
// one day.
type StudentAttendanceState struct {
	Key            string     `json:"key"`
	Identity       string     `json:"identity"`
	DisplayName    string     `json:"name"`
	Email          string     `json:"email"`
	Status         StatusCode `json:"status"`
	Label          string     `json:"label"`
	EntryTime      *time.Time `json:"entryTime"`
	LeaveTime      *time.Time `json:"leaveTime"`
	LastObservedAt time.Time  `json:"lastObservedAt"`
}

// AggregateStats backs the stat cards.
type AggregateStats struct {
	Total   int `json:"total"`
	Present int `json:"presentCount"`
	Left    int `json:"leftCount"`
	Absent  int `json:"absentCount"`
	Late    int `json:"lateCount"`
	Unknown int `json:"unknownCount"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
