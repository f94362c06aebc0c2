package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/maxvaer/sqlprobe/internal/logging"
	"github.com/maxvaer/sqlprobe/internal/output"
	"github.com/maxvaer/sqlprobe/internal/results"
)

// ErrInvalidInput is returned by Start when a required argument is missing.
var ErrInvalidInput = errors.New("invalid input")

// Factory builds an idle Session for a target and payload source reference.
type Factory func(target, sourceRef string) (*Session, error)

// Manager is the host-facing control surface. It keeps at most one current
// session; starting a new scan supersedes the previous one.
type Manager struct {
	factory Factory
	log     *zap.Logger

	mu       sync.Mutex
	current  *Session
	subs     []results.Subscriber
	attached []*results.Subscription
}

// NewManager creates a Manager that builds sessions with factory.
func NewManager(factory Factory, log *zap.Logger) *Manager {
	return &Manager{factory: factory, log: logging.OrNop(log).Named("manager")}
}

// Start validates its arguments, supersedes any running session and runs a
// new one in the background. Invalid input is reported before any state
// changes.
func (m *Manager) Start(ctx context.Context, target, sourceRef string) (*Session, error) {
	if target == "" || sourceRef == "" {
		return nil, fmt.Errorf("%w: target URL and payload source are required", ErrInvalidInput)
	}

	s, err := m.factory(target, sourceRef)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	prev := m.current
	detached := m.attached
	m.current = s
	m.attached = make([]*results.Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		m.attached = append(m.attached, s.Subscribe(sub))
	}
	m.mu.Unlock()

	// Events of the superseded session, including its stop sentinel, must
	// not reach subscribers once the new session is current.
	for _, ss := range detached {
		ss.Close()
	}
	if prev != nil && !prev.State().Terminal() {
		m.log.Info("superseding running session", zap.String("previous", prev.ID))
		prev.Stop()
	}

	go s.Run(ctx)
	return s, nil
}

// Stop requests a stop of the current session. It is a no-op when nothing
// is running.
func (m *Manager) Stop() {
	if s := m.Current(); s != nil {
		s.Stop()
	}
}

// TogglePause pauses or resumes the current session. Returns true if now
// paused, false if resumed or if there is no session.
func (m *Manager) TogglePause() bool {
	if s := m.Current(); s != nil {
		return s.TogglePause()
	}
	return false
}

// Report returns the report table of the current or most recent session.
func (m *Manager) Report() output.Table {
	s := m.Current()
	if s == nil {
		return output.NewTable(nil)
	}
	return output.NewTable(s.Results())
}

// Subscribe attaches sub to the live channel of the current session, if it
// has not finished, and of every session started later.
func (m *Manager) Subscribe(sub results.Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, sub)
	if m.current != nil && !m.current.State().Terminal() {
		m.attached = append(m.attached, m.current.Subscribe(sub))
	}
}

// Current returns the current or most recent session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Wait blocks until the current session is finished, or ctx ends.
func (m *Manager) Wait(ctx context.Context) (State, error) {
	s := m.Current()
	if s == nil {
		return Idle, nil
	}
	select {
	case <-s.Done():
		return s.State(), nil
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
}
