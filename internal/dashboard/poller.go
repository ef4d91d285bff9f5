// Package dashboard keeps the live attendance view fresh by re-polling the
// data source on a fixed interval.
package dashboard

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"attendboard/internal/reconcile"
	"attendboard/internal/source"
)

// ErrSuperseded is returned by Refresh when a newer fetch started before
// this one finished. Its result was discarded.
var ErrSuperseded = errors.New("dashboard refresh superseded by a newer fetch")

// Poller holds the latest dashboard Result. Every fetch takes a generation
// number; a result is applied only if no newer fetch has started since.
type Poller struct {
	fetcher  source.Fetcher
	pipeline *reconcile.Pipeline
	interval time.Duration

	started atomic.Uint64

	mu      sync.RWMutex
	current *reconcile.Result
	lastErr error

	// OnStale is called for every discarded result.
	OnStale func()
	// OnError is called for every failed fetch.
	OnError func(error)
}

// NewPoller creates a poller. Call Run to start the interval loop.
func NewPoller(fetcher source.Fetcher, pipeline *reconcile.Pipeline, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{fetcher: fetcher, pipeline: pipeline, interval: interval}
}

// Run refreshes immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if _, err := p.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) && ctx.Err() == nil {
		log.Printf("dashboard refresh failed: %v", err)
	}
}

// Refresh fetches today's snapshot and applies it unless a newer fetch
// has been started in the meantime.
func (p *Poller) Refresh(ctx context.Context) (reconcile.Result, error) {
	gen := p.started.Add(1)
	today := p.pipeline.Today()

	snap, err := p.fetcher.Fetch(ctx, source.FetchOptions{Date: today})
	if err == nil {
		res := p.pipeline.Run(snap, reconcile.DashboardView(today))
		if p.apply(gen, &res, nil) {
			return res, nil
		}
		return reconcile.Result{}, ErrSuperseded
	}

	if !p.apply(gen, nil, err) {
		return reconcile.Result{}, ErrSuperseded
	}
	if p.OnError != nil {
		p.OnError(err)
	}
	return reconcile.Result{}, err
}

// apply stores res (or err) for gen when gen is still the latest fetch.
func (p *Poller) apply(gen uint64, res *reconcile.Result, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.started.Load() {
		if p.OnStale != nil {
			p.OnStale()
		}
		log.Printf("dashboard: discarding result of fetch %d, fetch %d is newer", gen, p.started.Load())
		return false
	}
	if res != nil {
		p.current = res
	}
	p.lastErr = err
	return true
}

// Current returns the last applied result, whether one exists, and the
// error of the latest fetch if it failed.
func (p *Poller) Current() (reconcile.Result, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return reconcile.Result{}, false, p.lastErr
	}
	return *p.current, true, p.lastErr
}
