package scanner

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Sentinel URL and status values for session-level events.
const (
	SentinelErrorURL   = "ERROR"
	SentinelStoppedURL = "STOPPED"

	StatusFileNotFound = "File not found"
	StatusScanStopped  = "Scan stopped"
)

// Status is either an HTTP status code or, for sentinel results, a text.
type Status struct {
	Code int
	Text string
}

// CodeStatus wraps an HTTP status code.
func CodeStatus(code int) Status { return Status{Code: code} }

func (s Status) String() string {
	if s.Text != "" {
		return s.Text
	}
	return strconv.Itoa(s.Code)
}

// MarshalJSON encodes codes as numbers and sentinel texts as strings.
func (s Status) MarshalJSON() ([]byte, error) {
	if s.Text != "" {
		return json.Marshal(s.Text)
	}
	return json.Marshal(s.Code)
}

// SentinelKind marks a synthetic result that stands for a session event.
type SentinelKind int

const (
	NotSentinel SentinelKind = iota
	SentinelFileNotFound
	SentinelStopped
)

// ProbeResult is the outcome of one completed probe. It is created once
// and never mutated afterwards.
type ProbeResult struct {
	URL        string
	Parameter  string
	Status     Status
	Elapsed    float64 // seconds, two decimals
	Payload    string
	Vulnerable bool
	Sentinel   SentinelKind
}

// IsSentinel reports whether r stands for a session event rather than a probe.
func (r ProbeResult) IsSentinel() bool { return r.Sentinel != NotSentinel }

// FileNotFound is published when the payload source cannot be read.
func FileNotFound(sourceRef string) ProbeResult {
	return ProbeResult{
		URL:      SentinelErrorURL,
		Status:   Status{Text: StatusFileNotFound},
		Payload:  sourceRef,
		Sentinel: SentinelFileNotFound,
	}
}

// Stopped is published once a user-requested stop has drained.
func Stopped() ProbeResult {
	return ProbeResult{
		URL:      SentinelStoppedURL,
		Status:   Status{Text: StatusScanStopped},
		Sentinel: SentinelStopped,
	}
}

// Seconds rounds d to two decimal places.
func Seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
