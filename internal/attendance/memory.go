package attendance

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a map-backed Store for dev/testing.
type MemoryStore struct {
	mu       sync.RWMutex
	students map[string]Student // by index number
	events   []Event
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{students: make(map[string]Student), now: time.Now}
}

func (m *MemoryStore) CreateStudent(_ context.Context, st Student) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[st.IndexNumber]; ok {
		return Student{}, ErrDuplicate
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	st.CreatedAt = m.now().UTC()
	st.UpdatedAt = st.CreatedAt
	m.students[st.IndexNumber] = st
	return st, nil
}

func (m *MemoryStore) GetStudent(_ context.Context, indexNumber string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.students[indexNumber]
	if !ok {
		return Student{}, ErrNotFound
	}
	return st, nil
}

func (m *MemoryStore) ListStudents(_ context.Context, limit, offset int) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Student, 0, len(m.students))
	for _, st := range m.students {
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b Student) int { return strings.Compare(a.IndexNumber, b.IndexNumber) })
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) CountStudents(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.students), nil
}

func (m *MemoryStore) UpdateStudent(_ context.Context, st Student) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.students[st.IndexNumber]
	if !ok {
		return Student{}, ErrNotFound
	}
	cur.FirstName, cur.LastName, cur.Email, cur.Status = st.FirstName, st.LastName, st.Email, st.Status
	cur.UpdatedAt = m.now().UTC()
	m.students[st.IndexNumber] = cur
	return cur, nil
}

func (m *MemoryStore) DeleteStudent(_ context.Context, indexNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.students[indexNumber]
	if !ok {
		return ErrNotFound
	}
	delete(m.students, indexNumber)
	m.events = slices.DeleteFunc(m.events, func(e Event) bool { return e.StudentID == st.ID })
	return nil
}

func (m *MemoryStore) InsertEvent(_ context.Context, evt Event) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.UpdatedAt.IsZero() {
		evt.UpdatedAt = m.now().UTC()
	}
	m.events = append(m.events, evt)
	return evt, nil
}

func (m *MemoryStore) RecentEvent(_ context.Context, studentID, status string, from, to time.Time) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *Event
	for i := range m.events {
		e := m.events[i]
		if e.StudentID != studentID || e.Status != status || e.UpdatedAt.Before(from) || e.UpdatedAt.After(to) {
			continue
		}
		if found == nil || e.UpdatedAt.After(found.UpdatedAt) {
			found = &e
		}
	}
	return found, nil
}

func (m *MemoryStore) ListEventsForDay(_ context.Context, day time.Time) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	for _, e := range m.events {
		if e.Day.Equal(day) {
			out = append(out, e)
		}
	}
	return out, nil
}
