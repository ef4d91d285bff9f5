package reconcile

import (
	"fmt"
	"strings"
	"time"
)

const missingName = "N/A"

// Reconciler folds raw student histories into one canonical state per
// student identity for a given day.
type Reconciler struct {
	Normalizer *Normalizer
}

// NewReconciler creates a Reconciler using n for event normalization.
func NewReconciler(n *Normalizer) *Reconciler {
	if n == nil {
		n = NewNormalizer(time.UTC)
	}
	return &Reconciler{Normalizer: n}
}

// Identity returns the grouping key of a student: the trimmed, upper-cased
// index number.
func Identity(indexNumber string) string {
	return strings.ToUpper(strings.TrimSpace(indexNumber))
}

// Reconcile builds the canonical states for target. Every input student is
// represented: students without events for the day fall back to their
// top-level status, or absent when none is given. Output follows the
// first-seen order of identities.
func (r *Reconciler) Reconcile(students []RawStudent, target Date) []StudentAttendanceState {
	loc := r.Normalizer.loc()
	groups := make(map[groupKey]*group, len(students))
	order := make([]groupKey, 0, len(students))

	for i, st := range students {
		key := keyOf(st, i)
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		if g.name == "" {
			g.name = strings.TrimSpace(st.Name)
		}
		if g.email == "" {
			g.email = strings.TrimSpace(st.Email)
		}
		if !g.hasFallback {
			g.fallback = st.Status
			g.hasFallback = true
		}
		for _, raw := range st.AttendanceHistory {
			day, ok := dayOf(raw.Date, loc)
			if !ok || day != target {
				continue
			}
			g.fold(r.Normalizer.Normalize(raw))
		}
	}

	assignIdentities(order, groups)

	out := make([]StudentAttendanceState, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key].state(target))
	}
	return out
}

type identitySource int

const (
	fromIndex identitySource = iota
	fromID
	fromPosition
)

// groupKey keeps real index numbers apart from fallback identities, so a
// student without an index never merges with one whose index happens to
// spell the same.
type groupKey struct {
	source identitySource
	value  string
}

func keyOf(st RawStudent, pos int) groupKey {
	if id := Identity(st.IndexNumber); id != "" {
		return groupKey{fromIndex, id}
	}
	if id := Identity(st.ID); id != "" {
		return groupKey{fromID, id}
	}
	return groupKey{fromPosition, fmt.Sprintf("%s-%d", missingName, pos+1)}
}

// assignIdentities gives every group a distinct display identity. Index
// numbers are kept as-is; a fallback that clashes with one gets a numeric
// suffix.
func assignIdentities(order []groupKey, groups map[groupKey]*group) {
	used := make(map[string]bool, len(order))
	for _, key := range order {
		if key.source == fromIndex {
			used[key.value] = true
			groups[key].identity = key.value
		}
	}
	for _, key := range order {
		if key.source == fromIndex {
			continue
		}
		id := key.value
		for n := 2; used[id]; n++ {
			id = fmt.Sprintf("%s~%d", key.value, n)
		}
		used[id] = true
		groups[key].identity = id
	}
}

type group struct {
	identity    string
	name        string
	email       string
	fallback    string
	hasFallback bool

	events   int
	status   StatusCode
	spelling string
	observed time.Time
	entry    *time.Time
	leave    *time.Time
}

// fold merges e field by field. Status follows the freshest event, ties
// keep the first seen; entry and leave keep the latest known instant.
func (g *group) fold(e NormalizedEvent) {
	if g.events == 0 || e.ObservedAt.After(g.observed) {
		g.status = e.Status
		g.spelling = e.Spelling
		g.observed = e.ObservedAt
	}
	g.events++
	g.entry = latest(g.entry, e.EntryTime)
	g.leave = latest(g.leave, e.LeaveTime)
}

func (g *group) state(day Date) StudentAttendanceState {
	status, spelling := g.status, g.spelling
	if g.events == 0 {
		spelling = strings.ToLower(strings.TrimSpace(g.fallback))
		if spelling == "" {
			spelling = string(StatusAbsent)
		}
		status = ParseStatus(spelling)
	}
	name := g.name
	if name == "" {
		name = missingName
	}
	return StudentAttendanceState{
		Key:            g.identity + "@" + day.String(),
		Identity:       g.identity,
		DisplayName:    name,
		Email:          g.email,
		Status:         status,
		Label:          Label(spelling),
		EntryTime:      g.entry,
		LeaveTime:      g.leave,
		LastObservedAt: g.observed,
	}
}

func latest(cur, next *time.Time) *time.Time {
	if next == nil {
		return cur
	}
	if cur == nil || next.After(*cur) {
		t := *next
		return &t
	}
	return cur
}
