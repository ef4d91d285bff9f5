package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"attendboard/internal/reconcile"
	"attendboard/internal/source"
)

type gatedFetcher struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
	snaps   []reconcile.Snapshot
	errs    []error
}

func (f *gatedFetcher) Fetch(ctx context.Context, opts source.FetchOptions) (reconcile.Snapshot, error) {
	n := int(f.calls.Add(1)) - 1
	if n == 0 && f.release != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	var err error
	if n < len(f.errs) {
		err = f.errs[n]
	}
	return f.snaps[n], err
}

func student(index, status string) reconcile.RawStudent {
	return reconcile.RawStudent{IndexNumber: index, Status: status}
}

func newPipeline() *reconcile.Pipeline {
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	return reconcile.NewPipeline(time.UTC, func() time.Time { return now }, nil)
}

func TestRefreshDiscardsStaleResult(t *testing.T) {
	f := &gatedFetcher{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		snaps: []reconcile.Snapshot{
			{Students: []reconcile.RawStudent{student("OLD", "present")}},
			{Students: []reconcile.RawStudent{student("NEW", "present")}},
		},
	}
	p := NewPoller(f, newPipeline(), time.Minute)
	var stale atomic.Int32
	p.OnStale = func() { stale.Add(1) }

	slowDone := make(chan error, 1)
	go func() {
		_, err := p.Refresh(context.Background())
		slowDone <- err
	}()
	<-f.entered

	res, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("fast refresh failed: %v", err)
	}
	if len(res.States) != 1 || res.States[0].Identity != "NEW" {
		t.Fatalf("unexpected fast result %+v", res.States)
	}

	close(f.release)
	if err := <-slowDone; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if stale.Load() != 1 {
		t.Fatalf("expected one stale result, got %d", stale.Load())
	}

	cur, ok, err := p.Current()
	if !ok || err != nil {
		t.Fatalf("expected current result, ok=%v err=%v", ok, err)
	}
	if cur.States[0].Identity != "NEW" {
		t.Fatalf("stale result overwrote newer one: %+v", cur.States)
	}
}

func TestRefreshDashboardSubset(t *testing.T) {
	f := &gatedFetcher{snaps: []reconcile.Snapshot{{Students: []reconcile.RawStudent{
		student("A", "present"),
		student("B", ""),
		student("C", "left"),
		student("D", "late"),
	}}}}
	p := NewPoller(f, newPipeline(), time.Minute)

	res, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.View != "dashboard" || res.Date != "2024-01-10" {
		t.Fatalf("unexpected view %q date %q", res.View, res.Date)
	}
	if len(res.States) != 2 || res.States[0].Identity != "A" || res.States[1].Identity != "C" {
		t.Fatalf("dashboard must list present then left, got %+v", res.States)
	}
	if res.Stats.Total != 4 || res.Stats.Late != 1 || res.Stats.Absent != 1 {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
}

func TestRefreshErrorKeepsLastResult(t *testing.T) {
	boom := errors.New("boom")
	f := &gatedFetcher{
		snaps: []reconcile.Snapshot{{Students: []reconcile.RawStudent{student("A", "present")}}, {}},
		errs:  []error{nil, boom},
	}
	p := NewPoller(f, newPipeline(), time.Minute)
	var reported error
	p.OnError = func(err error) { reported = err }

	if _, err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if _, err := p.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !errors.Is(reported, boom) {
		t.Fatalf("OnError not called, got %v", reported)
	}
	cur, ok, err := p.Current()
	if !ok || !errors.Is(err, boom) || cur.States[0].Identity != "A" {
		t.Fatalf("expected previous result with error, got ok=%v err=%v %+v", ok, err, cur.States)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := &gatedFetcher{snaps: []reconcile.Snapshot{{}, {}, {}, {}, {}, {}, {}, {}, {}, {}}}
	p := NewPoller(f, newPipeline(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for f.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("initial refresh never ran")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if _, ok, _ := p.Current(); !ok {
		t.Fatalf("expected initial result")
	}
}
