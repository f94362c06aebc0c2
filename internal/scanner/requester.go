package scanner

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maxvaer/sqlprobe/internal/config"
)

// Response holds the parts of an HTTP response the classifier needs.
type Response struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Outcome is what a single probe produced: either a completed response or
// a drop with its reason. Exactly one of Response and Err is set.
type Outcome struct {
	Case     TestCase
	URL      string
	Response *Response
	Err      error
}

// Dropped reports whether the probe failed or timed out.
func (o Outcome) Dropped() bool { return o.Response == nil }

// MaxBodySize caps how much of a response body is read for classification.
const MaxBodySize = 4 << 20

// Prober sends one test case to the target.
type Prober interface {
	Probe(ctx context.Context, tc TestCase) Outcome
}

// Requester wraps an HTTP client that injects payloads into a query parameter.
type Requester struct {
	client  *http.Client
	target  *url.URL
	headers map[string]string
	agents  []string
}

// NewRequester creates a Requester from the provided options. The per-host
// connection bound is enforced by the transport.
func NewRequester(opts *config.Options) (*Requester, error) {
	target, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", opts.URL, err)
	}
	if target.Scheme == "" {
		target.Scheme = "http"
	}
	if target.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing host", opts.URL)
	}
	target.Path = strings.TrimRight(target.Path, "/")

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		DialContext: (&net.Dialer{
			Timeout: opts.Timeout,
		}).DialContext,
		MaxConnsPerHost:     opts.PerHost,
		MaxIdleConnsPerHost: opts.PerHost,
		MaxIdleConns:        opts.PerHost,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	agents := opts.UserAgents
	if len(agents) == 0 {
		agents = config.DefaultUserAgents
	}

	return &Requester{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		target:  target,
		headers: opts.Headers,
		agents:  agents,
	}, nil
}

// BuildURL returns the target URL with the payload set as tc.Parameter.
// Other query parameters of the target are preserved.
func (r *Requester) BuildURL(tc TestCase) string {
	u := *r.target
	q := u.Query()
	q.Set(tc.Parameter, tc.Payload)
	u.RawQuery = q.Encode()
	return u.String()
}

// Probe sends a GET for tc and reads up to MaxBodySize of the body. Any
// failure, including the client timeout, yields a dropped Outcome.
func (r *Requester) Probe(ctx context.Context, tc TestCase) Outcome {
	targetURL := r.BuildURL(tc)
	out := Outcome{Case: tc, URL: targetURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		out.Err = newProbeError(targetURL, tc.Parameter, err)
		return out
	}

	req.Header.Set("User-Agent", r.agents[rand.IntN(len(r.agents))])
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		out.Err = newProbeError(targetURL, tc.Parameter, err)
		return out
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		out.Err = newProbeError(targetURL, tc.Parameter, fmt.Errorf("reading response body: %w", err))
		return out
	}

	out.Response = &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Duration:   time.Since(start),
	}
	return out
}
