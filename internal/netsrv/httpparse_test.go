package netsrv

import (
	"bytes"
	"testing"
)

const sampleRequest = "POST /api/generate?log=1 HTTP/1.1\r\n" +
	"Host: localhost\r\n" +
	"content-length: 16\r\n" +
	"Content-Type: application/json\r\n" +
	"\r\n" +
	`{"prompt":"hi!"}`

func TestParseCompleteRequest(t *testing.T) {
	msg, consumed, err := parseHTTPMessage([]byte(sampleRequest))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg == nil {
		t.Fatal("expected a complete message")
	}
	if consumed != len(sampleRequest) {
		t.Fatalf("consumed=%d want %d", consumed, len(sampleRequest))
	}
	if msg.method != "POST" || msg.target != "/api/generate?log=1" {
		t.Fatalf("request line: %s %s", msg.method, msg.target)
	}
	// Header lookup is case-insensitive.
	if msg.header.Get("CONTENT-TYPE") != "application/json" {
		t.Fatalf("headers: %v", msg.header)
	}
	if string(msg.body) != `{"prompt":"hi!"}` {
		t.Fatalf("body: %q", msg.body)
	}
}

// Splitting a valid request at every byte offset must reconstruct an
// identical message once the second half arrives.
func TestParseEveryChunkSplit(t *testing.T) {
	full := []byte(sampleRequest)
	for cut := 0; cut <= len(full); cut++ {
		buf := append([]byte(nil), full[:cut]...)
		msg, _, err := parseHTTPMessage(buf)
		if err != nil {
			t.Fatalf("cut=%d: unexpected error %v", cut, err)
		}
		if cut < len(full) && msg != nil {
			// Complete early only if the remainder is body we already have.
			t.Fatalf("cut=%d: message complete too early", cut)
		}
		buf = append(buf, full[cut:]...)
		msg, consumed, err := parseHTTPMessage(buf)
		if err != nil || msg == nil {
			t.Fatalf("cut=%d: parse after join: %v %v", cut, msg, err)
		}
		if consumed != len(full) || msg.method != "POST" || string(msg.body) != `{"prompt":"hi!"}` {
			t.Fatalf("cut=%d: wrong reconstruction: %+v", cut, msg)
		}
	}
}

func TestParsePipelinedPair(t *testing.T) {
	first := "GET /api/tags HTTP/1.1\r\nHost: a\r\n\r\n"
	buf := []byte(first + sampleRequest)

	msg, consumed, err := parseHTTPMessage(buf)
	if err != nil || msg == nil {
		t.Fatalf("first: %v %v", msg, err)
	}
	if msg.method != "GET" || msg.target != "/api/tags" {
		t.Fatalf("first: %+v", msg)
	}
	buf = buf[consumed:]

	msg, consumed, err = parseHTTPMessage(buf)
	if err != nil || msg == nil {
		t.Fatalf("second: %v %v", msg, err)
	}
	if msg.method != "POST" || consumed != len(sampleRequest) {
		t.Fatalf("second: %+v consumed=%d", msg, consumed)
	}

	if msg, _, _ := parseHTTPMessage(buf[consumed:]); msg != nil {
		t.Fatal("no third message expected")
	}
}

func TestParseMissingContentLength(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: a\r\n\r\n"
	msg, consumed, err := parseHTTPMessage([]byte(raw))
	if err != nil || msg == nil {
		t.Fatalf("parse: %v %v", msg, err)
	}
	if consumed != len(raw) || len(msg.body) != 0 {
		t.Fatalf("consumed=%d body=%q", consumed, msg.body)
	}
}

func TestParseUnparseableContentLength(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nContent-Length: banana\r\n\r\n"
	msg, _, err := parseHTTPMessage([]byte(raw))
	if err != nil || msg == nil {
		t.Fatalf("unparseable length must not be fatal: %v %v", msg, err)
	}
	if len(msg.body) != 0 {
		t.Fatalf("body: %q", msg.body)
	}
}

func TestParseIncompleteBody(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc"
	msg, _, err := parseHTTPMessage([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg != nil {
		t.Fatal("message should be incomplete")
	}
}

func TestParseMalformedRequestLine(t *testing.T) {
	if _, _, err := parseHTTPMessage([]byte("GARBAGE\r\n\r\n")); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseOversizedHeaders(t *testing.T) {
	buf := bytes.Repeat([]byte("a"), maxHeaderBytes+8)
	if _, _, err := parseHTTPMessage(buf); err == nil {
		t.Fatal("expected oversize error")
	}
}
