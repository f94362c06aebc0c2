package config

import (
	"fmt"
	"time"
)

// Defaults for the probe engine.
const (
	DefaultConcurrency   = 2000
	DefaultPerHost       = 100
	DefaultTimeout       = 2 * time.Second
	DefaultTimeThreshold = 1500 * time.Millisecond
	DefaultQueueSize     = 1024
)

// DefaultUserAgents is the fixed pool a User-Agent is drawn from per request.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Options holds all configuration for a sqlprobe scan.
type Options struct {
	// Target
	URL          string
	PayloadsPath string // CSV of parameter,payload records
	RequestFile  string // raw HTTP request supplying URL and headers

	// Performance
	Concurrency int           // admission gate capacity
	PerHost     int           // max open connections to the target host
	Timeout     time.Duration // per request, no retries
	Rate        float64       // requests per second, 0 = unlimited

	// Detection
	TimeThreshold time.Duration

	// HTTP
	Headers    map[string]string
	UserAgents []string
	Proxy      string

	// Output
	OutputFile     string
	OutputFormat   string // "csv", "json", "text"
	StreamFile     string // JSON lines, one per published event
	OnResultCmd    string
	OnlyVulnerable bool
	ExcludeStatus  []int
	Quiet          bool
	NoColor        bool
	Verbose        bool

	// Live channel
	QueueSize int // per-subscriber buffer

	// Metrics
	MetricsAddr string

	ConfigFile string
}

// Default returns Options populated with the engine defaults.
func Default() *Options {
	return &Options{
		Concurrency:   DefaultConcurrency,
		PerHost:       DefaultPerHost,
		Timeout:       DefaultTimeout,
		TimeThreshold: DefaultTimeThreshold,
		UserAgents:    append([]string(nil), DefaultUserAgents...),
		OutputFormat:  "csv",
		QueueSize:     DefaultQueueSize,
	}
}

// Validate checks bounds that the engine relies on.
func (o *Options) Validate() error {
	if o.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", o.Concurrency)
	}
	if o.PerHost <= 0 {
		return fmt.Errorf("per-host connection limit must be positive, got %d", o.PerHost)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", o.Timeout)
	}
	if o.TimeThreshold <= 0 {
		return fmt.Errorf("time threshold must be positive, got %s", o.TimeThreshold)
	}
	// A probe that trips the timing heuristic must still finish before the
	// hard timeout drops it.
	if o.TimeThreshold >= o.Timeout {
		return fmt.Errorf("time threshold %s must be below request timeout %s", o.TimeThreshold, o.Timeout)
	}
	if o.Rate < 0 {
		return fmt.Errorf("rate cannot be negative, got %v", o.Rate)
	}
	switch o.OutputFormat {
	case "csv", "json", "text":
	default:
		return fmt.Errorf("unknown output format %q (csv, json, text)", o.OutputFormat)
	}
	if len(o.UserAgents) == 0 {
		return fmt.Errorf("user-agent pool is empty")
	}
	return nil
}
