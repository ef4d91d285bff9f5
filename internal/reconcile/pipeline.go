package reconcile

import (
	"slices"
	"time"
)

// View selects the day and the status subset shown in the table. An
// empty Subset shows every status.
type View struct {
	Name   string
	Date   Date
	Subset []StatusCode
}

// ByDateView shows every student for the chosen day.
func ByDateView(d Date) View {
	return View{Name: "by_date", Date: d}
}

// DashboardView shows the students currently on site or already gone.
func DashboardView(today Date) View {
	return View{Name: "dashboard", Date: today, Subset: []StatusCode{StatusPresent, StatusLeft}}
}

func (v View) includes(s StatusCode) bool {
	return len(v.Subset) == 0 || slices.Contains(v.Subset, s)
}

// Result is the output of one pass. It is never modified after Run
// returns; a newer pass replaces it wholesale.
type Result struct {
	View        string                   `json:"view"`
	Date        string                   `json:"date"`
	Stats       AggregateStats           `json:"stats"`
	States      []StudentAttendanceState `json:"students"`
	GeneratedAt time.Time                `json:"generatedAt"`
}

// Filter applies a text query and status filter to the ordered states.
func (r Result) Filter(query string, status StatusFilter) []StudentAttendanceState {
	return Filter(r.States, query, status)
}

// PassObserver receives timing and size of every pass.
type PassObserver func(view string, elapsed time.Duration, students int)

// Pipeline is the shared reconcile, order and aggregate pass behind the
// by-date and dashboard views.
type Pipeline struct {
	reconciler *Reconciler
	location   *time.Location
	clock      func() time.Time
	observe    PassObserver
}

// NewPipeline creates a pipeline working in loc. clock defaults to
// time.Now and is used for GeneratedAt and Today only.
func NewPipeline(loc *time.Location, clock func() time.Time, onParseError func(field, value string, err error)) *Pipeline {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	n := NewNormalizer(loc)
	n.OnParseError = onParseError
	return &Pipeline{reconciler: NewReconciler(n), location: loc, clock: clock}
}

// WithObserver sets a hook called after every pass.
func (p *Pipeline) WithObserver(o PassObserver) *Pipeline {
	p.observe = o
	return p
}

// Location returns the zone the pipeline reads days and times in.
func (p *Pipeline) Location() *time.Location { return p.location }

// Today returns the current calendar day in the pipeline's zone.
func (p *Pipeline) Today() Date {
	return DateOf(p.clock(), p.location)
}

// Run reconciles snap for view. Stats cover every canonical state; the
// returned States are ordered and limited to the view's subset.
func (p *Pipeline) Run(snap Snapshot, view View) Result {
	start := time.Now()
	states := Order(p.reconciler.Reconcile(snap.Students, view.Date))
	stats := Aggregate(states, snap.Stats)

	shown := states
	if len(view.Subset) > 0 {
		shown = make([]StudentAttendanceState, 0, len(states))
		for _, st := range states {
			if view.includes(st.Status) {
				shown = append(shown, st)
			}
		}
	}
	if p.observe != nil {
		p.observe(view.Name, time.Since(start), len(states))
	}
	return Result{
		View:        view.Name,
		Date:        view.Date.String(),
		Stats:       stats,
		States:      shown,
		GeneratedAt: p.clock().In(p.location),
	}
}
