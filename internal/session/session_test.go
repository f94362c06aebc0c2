package session

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxvaer/sqlprobe/internal/config"
	"github.com/maxvaer/sqlprobe/internal/detect"
	"github.com/maxvaer/sqlprobe/internal/payloads"
	"github.com/maxvaer/sqlprobe/internal/scanner"
)

type proberFunc func(ctx context.Context, tc scanner.TestCase) scanner.Outcome

func (f proberFunc) Probe(ctx context.Context, tc scanner.TestCase) scanner.Outcome { return f(ctx, tc) }

// okProber answers every probe with 200 after delay.
func okProber(delay time.Duration) proberFunc {
	return func(_ context.Context, tc scanner.TestCase) scanner.Outcome {
		time.Sleep(delay)
		return scanner.Outcome{
			Case:     tc,
			URL:      "http://target/?" + tc.Parameter + "=" + tc.Payload,
			Response: &scanner.Response{StatusCode: 200, Body: []byte("ok"), Duration: delay},
		}
	}
}

type recorder struct {
	mu     sync.Mutex
	events []scanner.ProbeResult
}

func (r *recorder) OnResult(res scanner.ProbeResult) {
	r.mu.Lock()
	r.events = append(r.events, res)
	r.mu.Unlock()
}

func (r *recorder) all() []scanner.ProbeResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]scanner.ProbeResult(nil), r.events...)
}

func cases(n int) []scanner.TestCase {
	out := make([]scanner.TestCase, n)
	for i := range out {
		out[i] = scanner.TestCase{Parameter: "id", Payload: fmt.Sprint(i)}
	}
	return out
}

func TestRun_Completed(t *testing.T) {
	var loaded int
	s := New(Config{
		Target:      "http://target",
		Source:      &payloads.SliceSource{Name: "mem", Cases: cases(50)},
		Prober:      okProber(time.Millisecond),
		Concurrency: 8,
		OnLoad:      func(n int) { loaded = n },
	})
	rec := &recorder{}
	s.Subscribe(rec)

	st := s.Run(context.Background())
	assert.Equal(t, Completed, st)
	assert.Equal(t, Completed, s.State())
	assert.Equal(t, 50, loaded)

	rs := s.Results()
	assert.Len(t, rs, 50)
	assert.Equal(t, rs, rec.all(), "subscribers see results in append order")

	stats := s.Stats()
	assert.Equal(t, 50, stats.Total)
	assert.EqualValues(t, 50, stats.Submitted)
	assert.LessOrEqual(t, stats.Peak, int64(8))

	select {
	case <-s.Done():
	default:
		t.Fatal("Done must be closed after Run returns")
	}
}

func TestRun_MissingSource(t *testing.T) {
	var probed bool
	s := New(Config{
		Target: "http://target",
		Source: payloads.NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")),
		Prober: proberFunc(func(_ context.Context, tc scanner.TestCase) scanner.Outcome {
			probed = true
			return scanner.Outcome{Case: tc}
		}),
		Concurrency: 4,
	})
	rec := &recorder{}
	s.Subscribe(rec)

	assert.Equal(t, Failed, s.Run(context.Background()))
	assert.False(t, probed, "no request may be sent")
	assert.Empty(t, s.Results())

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, scanner.SentinelFileNotFound, events[0].Sentinel)
	assert.Equal(t, "ERROR", events[0].URL)
	assert.Equal(t, "File not found", events[0].Status.String())
}

func TestRun_StopMidScan(t *testing.T) {
	s := New(Config{
		Target:      "http://target",
		Source:      &payloads.SliceSource{Name: "mem", Cases: cases(500)},
		Prober:      okProber(10 * time.Millisecond),
		Concurrency: 4,
	})
	rec := &recorder{}
	s.Subscribe(rec)

	done := make(chan State)
	go func() { done <- s.Run(context.Background()) }()

	require.Eventually(t, func() bool { return len(rec.all()) >= 5 }, 5*time.Second, time.Millisecond)
	s.Stop()

	var st State
	select {
	case st = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("session did not stop")
	}
	assert.Equal(t, Stopped, st)

	stats := s.Stats()
	assert.Less(t, stats.Submitted, int64(500))
	assert.LessOrEqual(t, int64(len(s.Results())), stats.Submitted)
	assert.Equal(t, int64(len(s.Results()))+stats.Dropped, stats.Submitted, "every admitted probe finishes")

	events := rec.all()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, scanner.SentinelStopped, last.Sentinel)
	assert.Equal(t, "Scan stopped", last.Status.String())
	for _, ev := range events[:len(events)-1] {
		assert.False(t, ev.IsSentinel())
	}
	for _, r := range s.Results() {
		assert.False(t, r.IsSentinel(), "sentinels are never recorded")
	}
}

func TestRun_ContextCancelStops(t *testing.T) {
	s := New(Config{
		Target:      "http://target",
		Source:      &payloads.SliceSource{Name: "mem", Cases: cases(500)},
		Prober:      okProber(5 * time.Millisecond),
		Concurrency: 2,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Equal(t, Stopped, s.Run(ctx))
	assert.Less(t, len(s.Results()), 500)
}

func TestRun_Idempotent(t *testing.T) {
	s := New(Config{
		Source:      &payloads.SliceSource{Name: "mem", Cases: cases(3)},
		Prober:      okProber(0),
		Concurrency: 1,
	})
	require.Equal(t, Completed, s.Run(context.Background()))
	assert.Equal(t, Completed, s.Run(context.Background()))
	assert.Len(t, s.Results(), 3)
}

func TestRun_AgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Query().Get("q")
		switch {
		case strings.Contains(p, "hang"):
			time.Sleep(800 * time.Millisecond)
		case strings.Contains(p, "'"):
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "Warning: pg_query(): Query failed: ERROR:  syntax error at or near")
		default:
			fmt.Fprint(w, "fine")
		}
	}))
	defer srv.Close()

	opts := config.Default()
	opts.URL = srv.URL
	opts.Timeout = 300 * time.Millisecond
	opts.PerHost = 4
	req, err := scanner.NewRequester(opts)
	require.NoError(t, err)
	classifier, err := detect.NewClassifier(200*time.Millisecond, opts.Timeout)
	require.NoError(t, err)

	var drops []scanner.Outcome
	var mu sync.Mutex
	s := New(Config{
		Target: srv.URL,
		Source: &payloads.SliceSource{Name: "mem", Cases: []scanner.TestCase{
			{Parameter: "q", Payload: "a"},
			{Parameter: "q", Payload: "'"},
			{Parameter: "q", Payload: "hang"},
		}},
		Prober:      req,
		Classifier:  classifier,
		Concurrency: 3,
		OnDrop: func(o scanner.Outcome) {
			mu.Lock()
			drops = append(drops, o)
			mu.Unlock()
		},
	})

	require.Equal(t, Completed, s.Run(context.Background()))

	rs := s.Results()
	require.Len(t, rs, 2, "the timed out probe is dropped")
	byPayload := map[string]scanner.ProbeResult{}
	for _, r := range rs {
		byPayload[r.Payload] = r
	}
	assert.True(t, byPayload["'"].Vulnerable)
	assert.Equal(t, 500, byPayload["'"].Status.Code)
	assert.False(t, byPayload["a"].Vulnerable)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, drops, 1)
	assert.Equal(t, "timeout", scanner.DropReason(drops[0].Err))
	assert.EqualValues(t, 1, s.Stats().Dropped)
	assert.EqualValues(t, 1, s.Stats().Vulnerable)
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{
		Idle: "idle", Running: "running", Completed: "completed", Stopped: "stopped", Failed: "failed",
	} {
		assert.Equal(t, want, st.String())
	}
	assert.False(t, Running.Terminal())
	assert.True(t, Failed.Terminal())
}

func TestRun_PerHostConnectionBound(t *testing.T) {
	const perHost = 3

	var (
		mu         sync.Mutex
		open, peak int
	)
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		fmt.Fprint(w, "fine")
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		mu.Lock()
		defer mu.Unlock()
		switch state {
		case http.StateNew:
			open++
			if open > peak {
				peak = open
			}
		case http.StateClosed, http.StateHijacked:
			open--
		}
	}
	srv.Start()
	defer srv.Close()

	opts := config.Default()
	opts.URL = srv.URL
	opts.PerHost = perHost
	req, err := scanner.NewRequester(opts)
	require.NoError(t, err)

	s := New(Config{
		Target:      srv.URL,
		Source:      &payloads.SliceSource{Name: "mem", Cases: cases(60)},
		Prober:      req,
		Concurrency: 40,
	})
	require.Equal(t, Completed, s.Run(context.Background()))
	require.Len(t, s.Results(), 60)

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, peak, 0)
	assert.LessOrEqual(t, peak, perHost, "open connections to the target exceed the per-host bound")
}
