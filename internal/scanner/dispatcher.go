package scanner

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DispatcherConfig holds options for the dispatcher.
type DispatcherConfig struct {
	Concurrency int        // admission gate capacity
	Throttler   *Throttler // nil = unlimited
}

// Dispatcher runs probes concurrently behind a counting admission gate.
// Submit blocks while the gate is full; each admitted probe runs in its
// own goroutine and reports its Outcome through a callback.
type Dispatcher struct {
	prober    Prober
	gate      *semaphore.Weighted
	throttler *Throttler

	wg       sync.WaitGroup
	inFlight atomic.Int64
	peak     atomic.Int64
}

// NewDispatcher creates a Dispatcher for p.
func NewDispatcher(p Prober, cfg DispatcherConfig) *Dispatcher {
	n := cfg.Concurrency
	if n <= 0 {
		n = 1
	}
	return &Dispatcher{
		prober:    p,
		gate:      semaphore.NewWeighted(int64(n)),
		throttler: cfg.Throttler,
	}
}

// Submit waits for a free slot and starts probing tc. done is called from
// the probe goroutine once the probe completes or is dropped. Submit only
// fails when ctx ends before the probe could be admitted.
//
// An admitted probe is detached from ctx cancellation: stopping a scan
// never aborts requests already in flight.
func (d *Dispatcher) Submit(ctx context.Context, tc TestCase, done func(Outcome)) error {
	if err := d.throttler.Wait(ctx); err != nil {
		return err
	}
	if err := d.gate.Acquire(ctx, 1); err != nil {
		return err
	}

	d.wg.Add(1)
	d.track(d.inFlight.Add(1))

	probeCtx := context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		defer d.gate.Release(1)
		defer d.inFlight.Add(-1)

		out := d.prober.Probe(probeCtx, tc)
		if done != nil {
			done(out)
		}
	}()
	return nil
}

// Wait blocks until every submitted probe has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// InFlight returns the number of probes currently running.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Peak returns the highest in-flight count observed.
func (d *Dispatcher) Peak() int64 {
	return d.peak.Load()
}

func (d *Dispatcher) track(n int64) {
	for {
		cur := d.peak.Load()
		if n <= cur || d.peak.CompareAndSwap(cur, n) {
			return
		}
	}
}
