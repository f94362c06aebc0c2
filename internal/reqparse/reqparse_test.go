package reqparse

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFile_BurpHTTP2(t *testing.T) {
	content := "GET /item?id=4&sort=asc HTTP/2\r\n" +
		"Host: shop.example.com\r\n" +
		"Cookie: session=abc123; token=xyz\r\n" +
		"User-Agent: Mozilla/5.0\r\n" +
		"Accept-Encoding: gzip, deflate\r\n" +
		"Accept: */*\r\n" +
		"\r\n"

	path := writeTempFile(t, content)
	req, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	if req.Method != "GET" {
		t.Errorf("method = %q, want GET", req.Method)
	}
	if req.URL != "https://shop.example.com/item?id=4&sort=asc" {
		t.Errorf("url = %q, want the full path and query", req.URL)
	}
	if req.Headers["Cookie"] != "session=abc123; token=xyz" {
		t.Errorf("cookie = %q, want 'session=abc123; token=xyz'", req.Headers["Cookie"])
	}
	if req.Headers["User-Agent"] != "Mozilla/5.0" {
		t.Errorf("user-agent = %q, want 'Mozilla/5.0'", req.Headers["User-Agent"])
	}
	if _, ok := req.Headers["Host"]; ok {
		t.Error("Host must not be replayed")
	}
	if _, ok := req.Headers["Accept-Encoding"]; ok {
		t.Error("Accept-Encoding must not be replayed")
	}
}

func TestParse_HTTP11_Port80(t *testing.T) {
	req, err := Parse(strings.NewReader("GET /search?q=x HTTP/1.1\r\nHost: target.com:80\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.URL != "http://target.com:80/search?q=x" {
		t.Errorf("url = %q, want http://target.com:80/search?q=x", req.URL)
	}
}

func TestParse_AbsoluteTarget(t *testing.T) {
	req, err := Parse(strings.NewReader("GET http://proxy.test/a?b=1 HTTP/1.1\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.URL != "http://proxy.test/a?b=1" {
		t.Errorf("url = %q", req.URL)
	}
}

func TestParse_RepeatedCookies(t *testing.T) {
	req, err := Parse(strings.NewReader("GET / HTTP/2\r\nHost: a.test\r\nCookie: a=1\r\nCookie: b=2\r\n\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Headers["Cookie"] != "a=1; b=2" {
		t.Errorf("cookie = %q, want 'a=1; b=2'", req.Headers["Cookie"])
	}
}

func TestParams(t *testing.T) {
	req := &Request{URL: "https://a.test/p?sort=asc&id=4&id=5"}
	got := strings.Join(req.Params(), ",")
	if got != "id,sort" {
		t.Errorf("params = %q, want id,sort", got)
	}
}

func TestParseFile_MissingHost(t *testing.T) {
	path := writeTempFile(t, "GET / HTTP/1.1\r\nAccept: */*\r\n\r\n")
	if _, err := ParseFile(path); err == nil {
		t.Error("expected error for missing Host header")
	}
}

func TestParseFile_EmptyFile(t *testing.T) {
	path := writeTempFile(t, "")
	if _, err := ParseFile(path); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestParseFile_Missing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "request.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
