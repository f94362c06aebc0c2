package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/maxvaer/sqlprobe/internal/scanner"
)

type streamEvent struct {
	Session    string         `json:"session,omitempty"`
	Time       time.Time      `json:"ts"`
	Event      string         `json:"event"`
	URL        string         `json:"url"`
	Parameter  string         `json:"parameter,omitempty"`
	Status     scanner.Status `json:"status"`
	Elapsed    float64        `json:"time"`
	Payload    string         `json:"payload"`
	Vulnerable bool           `json:"vulnerable"`
}

func eventName(r scanner.ProbeResult) string {
	switch r.Sentinel {
	case scanner.SentinelFileNotFound:
		return "file_not_found"
	case scanner.SentinelStopped:
		return "stopped"
	default:
		return "result"
	}
}

// StreamWriter writes every published event, sentinels included, as one
// JSON object per line. It is a results subscriber.
type StreamWriter struct {
	mu      sync.Mutex
	enc     *json.Encoder
	closer  io.Closer
	session string
	err     error
}

// NewStreamWriter opens path for JSON lines output. "-" means stdout.
func NewStreamWriter(path string) (*StreamWriter, error) {
	if path == "-" {
		return newStreamWriter(os.Stdout, nil), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating stream file: %w", err)
	}
	return newStreamWriter(f, f), nil
}

func newStreamWriter(w io.Writer, closer io.Closer) *StreamWriter {
	return &StreamWriter{enc: json.NewEncoder(w), closer: closer}
}

// SetSession tags subsequent events with a session ID.
func (s *StreamWriter) SetSession(id string) {
	s.mu.Lock()
	s.session = id
	s.mu.Unlock()
}

func (s *StreamWriter) OnResult(r scanner.ProbeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = s.enc.Encode(streamEvent{
		Session:    s.session,
		Time:       time.Now().UTC(),
		Event:      eventName(r),
		URL:        r.URL,
		Parameter:  r.Parameter,
		Status:     r.Status,
		Elapsed:    r.Elapsed,
		Payload:    r.Payload,
		Vulnerable: r.Vulnerable,
	})
}

// Err returns the first write error, if any. Writing stops after it.
func (s *StreamWriter) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *StreamWriter) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
