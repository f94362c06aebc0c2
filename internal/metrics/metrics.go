// Package metrics exposes scan counters for Prometheus scraping.
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maxvaer/sqlprobe/internal/scanner"
)

// Collector holds the scan metrics on a private registry. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	resultsTotal  *prometheus.CounterVec
	dropsTotal    *prometheus.CounterVec
	sessionsTotal *prometheus.CounterVec
	inFlight      prometheus.GaugeFunc
	responseTime  *prometheus.HistogramVec
}

// New creates a Collector. inFlight, if non-nil, is sampled on every scrape.
func New(inFlight func() float64) (*Collector, error) {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.resultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlprobe_results_total",
			Help: "Completed probes by verdict",
		},
		[]string{"vulnerable"},
	)
	c.dropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlprobe_drops_total",
			Help: "Probes that failed or timed out",
		},
		[]string{"reason"},
	)
	c.sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlprobe_sessions_total",
			Help: "Finished scan sessions by terminal state",
		},
		[]string{"state"},
	)
	c.responseTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlprobe_response_time_seconds",
			Help:    "Probe response time distribution in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 1.5, 2.0, 5.0},
		},
		[]string{"vulnerable"},
	)

	collectors := []prometheus.Collector{c.resultsTotal, c.dropsTotal, c.sessionsTotal, c.responseTime}
	if inFlight != nil {
		c.inFlight = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "sqlprobe_in_flight",
				Help: "Probes currently in flight",
			},
			inFlight,
		)
		collectors = append(collectors, c.inFlight)
	}

	for _, col := range collectors {
		if err := c.registry.Register(col); err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}
	return c, nil
}

// OnResult records a completed probe. It is a results subscriber.
func (c *Collector) OnResult(r scanner.ProbeResult) {
	if c == nil || r.IsSentinel() {
		return
	}
	label := strconv.FormatBool(r.Vulnerable)
	c.resultsTotal.WithLabelValues(label).Inc()
	c.responseTime.WithLabelValues(label).Observe(r.Elapsed)
}

// ObserveDrop records a dropped probe.
func (c *Collector) ObserveDrop(o scanner.Outcome) {
	if c == nil {
		return
	}
	c.dropsTotal.WithLabelValues(scanner.DropReason(o.Err)).Inc()
}

// ObserveSession records a session reaching state.
func (c *Collector) ObserveSession(state string) {
	if c == nil {
		return
	}
	c.sessionsTotal.WithLabelValues(state).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes /metrics on addr until ctx ends. It returns once the
// listener is bound, so a bad address fails fast.
func (c *Collector) Serve(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() { _ = srv.Serve(ln) }()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return ln.Addr(), nil
}
