package netsrv

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
)

func TestResponseWriterContentLength(t *testing.T) {
	var out bytes.Buffer
	rw := newResponseWriter(&out)
	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set("Content-Length", "2")
	rw.WriteHeader(http.StatusCreated)
	rw.Write([]byte("{}"))
	rw.finish()

	s := out.String()
	if !strings.HasPrefix(s, "HTTP/1.1 201 Created\r\n") {
		t.Fatalf("status line: %q", s)
	}
	if !strings.Contains(s, "Connection: close\r\n") {
		t.Fatal("missing Connection: close")
	}
	if strings.Contains(s, "Transfer-Encoding") {
		t.Fatal("length-delimited response must not be chunked")
	}
	if !strings.HasSuffix(s, "\r\n\r\n{}") {
		t.Fatalf("body framing: %q", s)
	}
}

func TestResponseWriterChunked(t *testing.T) {
	var out bytes.Buffer
	rw := newResponseWriter(&out)
	rw.Write([]byte("hello"))
	rw.Flush()
	rw.Write([]byte("!"))
	rw.finish()

	s := out.String()
	if !strings.HasPrefix(s, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("status line: %q", s)
	}
	if !strings.Contains(s, "Transfer-Encoding: chunked\r\n") {
		t.Fatal("expected chunked framing")
	}
	body := s[strings.Index(s, "\r\n\r\n")+4:]
	if body != "5\r\nhello\r\n1\r\n!\r\n0\r\n\r\n" {
		t.Fatalf("chunk framing: %q", body)
	}
	if strings.Count(s, "0\r\n\r\n") != 1 {
		t.Fatal("exactly one terminal chunk expected")
	}
}

func TestResponseWriterNoBodyStatus(t *testing.T) {
	var out bytes.Buffer
	rw := newResponseWriter(&out)
	rw.WriteHeader(http.StatusNoContent)
	rw.finish()

	s := out.String()
	if strings.Contains(s, "Transfer-Encoding") {
		t.Fatalf("204 must not be chunked: %q", s)
	}
}

// failAfter fails every write after the first n bytes, simulating a peer
// that went away mid-stream.
type failAfter struct {
	n       int
	written int
}

func (f *failAfter) Write(p []byte) (int, error) {
	if f.written >= f.n {
		return 0, bytes.ErrTooLarge
	}
	f.written += len(p)
	return len(p), nil
}

func TestResponseWriterAbortsOnWriteError(t *testing.T) {
	rw := newResponseWriter(&failAfter{n: 0})
	rw.WriteHeader(http.StatusOK)
	if !rw.aborted {
		t.Fatal("header write failure must abort")
	}
	if _, err := rw.Write([]byte("x")); err == nil {
		t.Fatal("writes after abort must error")
	}
	rw.finish() // must not panic or write
}
