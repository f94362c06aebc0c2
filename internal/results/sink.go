// Package results holds the append-only result collection of a scan and
// fans every appended result out to live subscribers.
package results

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxvaer/sqlprobe/internal/scanner"
)

// DefaultQueueSize is the per-subscriber buffer when none is given.
const DefaultQueueSize = 1024

// terminalTimeout bounds how long a terminal event waits for a full queue.
const terminalTimeout = 5 * time.Second

// Subscriber receives published results. OnResult runs on the
// subscription's own goroutine, never on a probe goroutine.
type Subscriber interface {
	OnResult(r scanner.ProbeResult)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(r scanner.ProbeResult)

func (f SubscriberFunc) OnResult(r scanner.ProbeResult) { f(r) }

// Sink is an append-only, ordered collection of probe results. Append is
// safe for concurrent use; publish order equals append order.
type Sink struct {
	mu        sync.Mutex
	results   []scanner.ProbeResult
	subs      []*Subscription
	queueSize int
	closed    bool
	dropped   atomic.Int64
}

// NewSink creates a Sink whose subscribers buffer up to queueSize events.
func NewSink(queueSize int) *Sink {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Sink{queueSize: queueSize}
}

// Subscribe attaches sub to all events published from now on.
func (s *Sink) Subscribe(sub Subscriber) *Subscription {
	ss := &Subscription{
		sink: s,
		sub:  sub,
		ch:   make(chan scanner.ProbeResult, s.queueSize),
		done: make(chan struct{}),
	}
	go ss.run()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ss.ch)
		return ss
	}
	s.subs = append(s.subs, ss)
	return ss
}

// Append records r and publishes it. Sentinel results are published
// without being recorded.
func (s *Sink) Append(r scanner.ProbeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if !r.IsSentinel() {
		s.results = append(s.results, r)
	}
	for _, ss := range s.subs {
		select {
		case ss.ch <- r:
		default:
			// Subscriber is behind; drop rather than stall dispatch.
			ss.dropped.Add(1)
			s.dropped.Add(1)
		}
	}
}

// PublishTerminal publishes the final event of a session, waiting a
// bounded time for slow subscribers since no probe is running anymore.
// The event is not recorded.
func (s *Sink) PublishTerminal(r scanner.ProbeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	timer := time.NewTimer(terminalTimeout)
	defer timer.Stop()
	for _, ss := range s.subs {
		select {
		case ss.ch <- r:
		case <-timer.C:
			ss.dropped.Add(1)
			s.dropped.Add(1)
		}
	}
}

// Results returns a copy of the recorded results in append order.
func (s *Sink) Results() []scanner.ProbeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]scanner.ProbeResult, len(s.results))
	copy(out, s.results)
	return out
}

// Len returns the number of recorded results.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Dropped returns how many events were not delivered to some subscriber.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops publishing and waits until every subscriber has drained its
// queue. Recorded results stay readable.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, ss := range subs {
		close(ss.ch)
		<-ss.done
	}
}

func (s *Sink) remove(target *Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ss := range s.subs {
		if ss == target {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Subscription is one attached subscriber with its own queue.
type Subscription struct {
	sink    *Sink
	sub     Subscriber
	ch      chan scanner.ProbeResult
	done    chan struct{}
	dropped atomic.Int64
	once    sync.Once
}

func (ss *Subscription) run() {
	defer close(ss.done)
	for r := range ss.ch {
		ss.sub.OnResult(r)
	}
}

// Close detaches the subscription and waits for queued events to be handled.
func (ss *Subscription) Close() {
	ss.once.Do(func() {
		if ss.sink.remove(ss) {
			close(ss.ch)
		}
	})
	<-ss.done
}

// Dropped returns how many events this subscriber missed.
func (ss *Subscription) Dropped() int64 {
	return ss.dropped.Load()
}
