// Package reqparse reads a raw HTTP request (e.g. a Burp Suite export) so a
// captured request can serve as the scan target.
package reqparse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"net/url"
	"os"
	"sort"
	"strings"
)

// Request is what a scan takes from a captured request.
type Request struct {
	Method  string
	URL     string // scheme, host, path and query of the captured request
	Headers map[string]string
}

// skipHeaders are not replayed: the transport sets them per request.
var skipHeaders = map[string]struct{}{
	"Host":              {},
	"Content-Length":    {},
	"Content-Type":      {},
	"Accept-Encoding":   {},
	"Connection":        {},
	"Transfer-Encoding": {},
}

// ParseFile reads the request at path.
func ParseFile(path string) (*Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening request file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a request line and header block from r. A body, if any, is
// ignored.
func Parse(r io.Reader) (*Request, error) {
	tp := textproto.NewReader(bufio.NewReaderSize(r, 1024*1024)) // large cookies

	line, err := tp.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("request file is empty")
		}
		return nil, fmt.Errorf("reading request line: %w", err)
	}
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid request line: %q", line)
	}
	method, target := parts[0], parts[1]
	proto := ""
	if len(parts) > 2 {
		proto = strings.ToUpper(parts[2])
	}

	mh, err := tp.ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading headers: %w", err)
	}

	headers := make(map[string]string, len(mh))
	for key, values := range mh {
		if _, skip := skipHeaders[key]; skip {
			continue
		}
		sep := ", "
		if key == "Cookie" {
			sep = "; "
		}
		headers[key] = strings.Join(values, sep)
	}

	u, err := targetURL(target, mh.Get("Host"), proto)
	if err != nil {
		return nil, err
	}
	return &Request{Method: method, URL: u, Headers: headers}, nil
}

// targetURL rebuilds the absolute URL. Burp exports HTTP/2 requests for
// TLS targets, so https is assumed unless port 80 is explicit.
func targetURL(target, host, proto string) (string, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", fmt.Errorf("invalid URL in request line: %w", err)
		}
		return u.String(), nil
	}
	if host == "" {
		return "", fmt.Errorf("request file missing Host header")
	}

	scheme := "https"
	if strings.HasPrefix(proto, "HTTP/1") && strings.HasSuffix(host, ":80") {
		scheme = "http"
	}

	u, err := url.Parse(scheme + "://" + host + target)
	if err != nil {
		return "", fmt.Errorf("invalid request target %q: %w", target, err)
	}
	return u.String(), nil
}

// Params returns the sorted query parameter names of the captured URL,
// which are the natural injection points.
func (r *Request) Params() []string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil
	}
	var names []string
	for k := range u.Query() {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
