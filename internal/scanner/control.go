package scanner

import (
	"sync"
	"sync/atomic"
	"time"
)

// Controller is the cooperative stop flag of one scan, plus a pause gate.
// The submission loop checks it between submissions; it never touches
// probes that are already running.
type Controller struct {
	stopped atomic.Bool

	mu          sync.Mutex
	cond        *sync.Cond
	paused      bool
	pausedSince time.Time
	totalPaused time.Duration
}

// NewController creates a Controller in the running, not-stopped state.
func NewController() *Controller {
	c := &Controller{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// RequestStop sets the stop flag. It is idempotent and also releases
// anything blocked in Wait.
func (c *Controller) RequestStop() {
	c.stopped.Store(true)
	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Stopped reports whether a stop was requested.
func (c *Controller) Stopped() bool {
	return c.stopped.Load()
}

// Wait blocks while the scan is paused. Returns immediately if not paused
// or once a stop is requested.
func (c *Controller) Wait() {
	c.mu.Lock()
	for c.paused && !c.stopped.Load() {
		c.cond.Wait()
	}
	c.mu.Unlock()
}

// Toggle flips between paused and running. Returns true if now paused.
func (c *Controller) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		c.totalPaused += time.Since(c.pausedSince)
		c.paused = false
		c.cond.Broadcast()
	} else {
		c.paused = true
		c.pausedSince = time.Now()
	}
	return c.paused
}

// IsPaused returns whether the scan is currently paused.
func (c *Controller) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// PausedDuration returns the accumulated pause time, including any
// ongoing pause.
func (c *Controller) PausedDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.totalPaused
	if c.paused {
		d += time.Since(c.pausedSince)
	}
	return d
}
