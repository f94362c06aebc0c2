package scanner

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttler paces submissions to a fixed request rate. A nil Throttler or
// a zero rate never waits. Pacing happens before a probe starts, so it does
// not inflate the measured response time.
type Throttler struct {
	limiter *rate.Limiter
}

// NewThrottler returns a Throttler for rps requests per second.
func NewThrottler(rps float64) *Throttler {
	if rps <= 0 {
		return &Throttler{}
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Throttler{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until the next request may be sent.
func (t *Throttler) Wait(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}

// Enabled reports whether a rate is configured.
func (t *Throttler) Enabled() bool {
	return t != nil && t.limiter != nil
}
