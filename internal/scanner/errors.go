package scanner

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrTimeout means the probe did not finish within the request timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrTransport covers connection, TLS and body read failures.
	ErrTransport = errors.New("transport failure")
)

// ProbeError records why a probe was dropped.
type ProbeError struct {
	URL       string
	Parameter string
	Kind      error // ErrTimeout or ErrTransport
	Cause     error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%v for param '%s' on %s: %v", e.Kind, e.Parameter, truncate(e.URL, 80), e.Cause)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *ProbeError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

func newProbeError(rawURL, param string, cause error) *ProbeError {
	kind := ErrTransport
	var netErr net.Error
	if errors.Is(cause, context.DeadlineExceeded) || (errors.As(cause, &netErr) && netErr.Timeout()) {
		kind = ErrTimeout
	}
	return &ProbeError{URL: rawURL, Parameter: param, Kind: kind, Cause: cause}
}

// DropReason returns a short label for a drop error, used in logs and metrics.
func DropReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "transport"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
