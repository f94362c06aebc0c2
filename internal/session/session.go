// Package session runs one scan from payload source to drained results
// and exposes the control surface a host uses to start, stop and report.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maxvaer/sqlprobe/internal/detect"
	"github.com/maxvaer/sqlprobe/internal/logging"
	"github.com/maxvaer/sqlprobe/internal/payloads"
	"github.com/maxvaer/sqlprobe/internal/results"
	"github.com/maxvaer/sqlprobe/internal/scanner"
)

// State is the lifecycle state of a Session.
type State int

const (
	Idle State = iota
	Running
	Completed
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Completed || s == Stopped || s == Failed
}

// Config wires a Session to its collaborators.
type Config struct {
	Target      string
	Source      payloads.Source
	Prober      scanner.Prober
	Classifier  *detect.Classifier
	Concurrency int
	Throttler   *scanner.Throttler
	QueueSize   int
	Logger      *zap.Logger

	// OnLoad is called once with the number of test cases to submit.
	OnLoad func(total int)
	// OnDrop is called for every probe that failed or timed out.
	OnDrop func(o scanner.Outcome)
}

// Stats summarises a session.
type Stats struct {
	Total      int
	Submitted  int64
	Completed  int
	Dropped    int64
	Vulnerable int64
	Peak       int64
	Duration   time.Duration
	Paused     time.Duration
}

// Session is one scan run. It owns its result sink and its stop flag; no
// state is shared with other sessions.
type Session struct {
	ID     string
	Target string

	cfg        Config
	source     payloads.Source
	classifier *detect.Classifier
	dispatcher *scanner.Dispatcher
	sink       *results.Sink
	ctl        *scanner.Controller
	log        *zap.Logger

	mu       sync.Mutex
	state    State
	total    int
	started  time.Time
	finished time.Time

	submitted  atomic.Int64
	dropped    atomic.Int64
	vulnerable atomic.Int64

	done chan struct{}
}

// New creates an idle Session.
func New(cfg Config) *Session {
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = detect.Default()
	}
	id := uuid.NewString()
	s := &Session{
		ID:         id,
		Target:     cfg.Target,
		cfg:        cfg,
		source:     cfg.Source,
		classifier: classifier,
		sink:       results.NewSink(cfg.QueueSize),
		ctl:        scanner.NewController(),
		log:        logging.OrNop(cfg.Logger).Named("session").With(zap.String("session", id[:8])),
		done:       make(chan struct{}),
	}
	s.dispatcher = scanner.NewDispatcher(cfg.Prober, scanner.DispatcherConfig{
		Concurrency: cfg.Concurrency,
		Throttler:   cfg.Throttler,
	})
	return s
}

// Subscribe attaches sub to this session's live results.
func (s *Session) Subscribe(sub results.Subscriber) *results.Subscription {
	return s.sink.Subscribe(sub)
}

// Run executes the scan and returns its terminal state. Cancelling ctx
// behaves like Stop. Calling Run on a session that already ran returns
// its current state.
func (s *Session) Run(ctx context.Context) State {
	s.mu.Lock()
	if s.state != Idle {
		st := s.state
		s.mu.Unlock()
		return st
	}
	s.state = Running
	s.started = time.Now()
	s.mu.Unlock()

	stopOnCancel := context.AfterFunc(ctx, s.ctl.RequestStop)
	defer stopOnCancel()

	cases, err := s.source.Load()
	if err != nil {
		s.log.Error("payload source unavailable", zap.String("source", s.source.Ref()), zap.Error(err))
		s.sink.PublishTerminal(scanner.FileNotFound(s.source.Ref()))
		return s.finish(Failed)
	}

	s.mu.Lock()
	s.total = len(cases)
	s.mu.Unlock()
	if s.cfg.OnLoad != nil {
		s.cfg.OnLoad(len(cases))
	}
	s.log.Info("scan started",
		zap.String("target", s.Target),
		zap.String("source", s.source.Ref()),
		zap.Int("cases", len(cases)),
	)

	stopped := false
	for _, tc := range cases {
		s.ctl.Wait()
		if s.ctl.Stopped() {
			stopped = true
			break
		}
		if err := s.dispatcher.Submit(ctx, tc, s.complete); err != nil {
			// ctx ended while waiting for a slot.
			s.ctl.RequestStop()
			stopped = true
			break
		}
		s.submitted.Add(1)
	}

	s.dispatcher.Wait()

	if stopped {
		s.log.Info("scan stopped",
			zap.Int64("submitted", s.submitted.Load()),
			zap.Int("total", len(cases)),
		)
		s.sink.PublishTerminal(scanner.Stopped())
		return s.finish(Stopped)
	}
	return s.finish(Completed)
}

// complete runs on the probe goroutine for every finished probe.
func (s *Session) complete(o scanner.Outcome) {
	if o.Dropped() {
		s.dropped.Add(1)
		s.log.Debug("probe dropped",
			zap.String("url", o.URL),
			zap.String("reason", scanner.DropReason(o.Err)),
			zap.Error(o.Err),
		)
		if s.cfg.OnDrop != nil {
			s.cfg.OnDrop(o)
		}
		return
	}

	elapsed := scanner.Seconds(o.Response.Duration)
	vulnerable := s.classifier.Classify(o.Response.StatusCode, o.Response.Body, elapsed)
	if vulnerable {
		s.vulnerable.Add(1)
		if sig, ok := s.classifier.Match(o.Response.Body); ok {
			s.log.Debug("error signature matched",
				zap.String("url", o.URL),
				zap.String("dbms", string(sig.DBMS)),
				zap.String("pattern", sig.Pattern),
			)
		}
	}

	s.sink.Append(scanner.ProbeResult{
		URL:        o.URL,
		Parameter:  o.Case.Parameter,
		Status:     scanner.CodeStatus(o.Response.StatusCode),
		Elapsed:    elapsed,
		Payload:    o.Case.Payload,
		Vulnerable: vulnerable,
	})
}

func (s *Session) finish(st State) State {
	s.sink.Close()

	s.mu.Lock()
	s.state = st
	s.finished = time.Now()
	s.mu.Unlock()

	s.log.Info("scan finished",
		zap.Stringer("state", st),
		zap.Int("results", s.sink.Len()),
		zap.Int64("dropped", s.dropped.Load()),
		zap.Int64("vulnerable", s.vulnerable.Load()),
	)
	close(s.done)
	return st
}

// Stop requests a cooperative stop. Probes already in flight complete.
func (s *Session) Stop() {
	s.ctl.RequestStop()
}

// TogglePause pauses or resumes submission. Returns true if now paused.
func (s *Session) TogglePause() bool {
	return s.ctl.Toggle()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session reached a terminal state and every
// subscriber has drained.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Results returns the recorded results in completion order.
func (s *Session) Results() []scanner.ProbeResult {
	return s.sink.Results()
}

// InFlight returns the number of probes currently outstanding.
func (s *Session) InFlight() int64 {
	return s.dispatcher.InFlight()
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	total := s.total
	started, finished := s.started, s.finished
	s.mu.Unlock()

	var d time.Duration
	switch {
	case started.IsZero():
	case finished.IsZero():
		d = time.Since(started)
	default:
		d = finished.Sub(started)
	}

	return Stats{
		Total:      total,
		Submitted:  s.submitted.Load(),
		Completed:  s.sink.Len(),
		Dropped:    s.dropped.Load(),
		Vulnerable: s.vulnerable.Load(),
		Peak:       s.dispatcher.Peak(),
		Duration:   d,
		Paused:     s.ctl.PausedDuration(),
	}
}
