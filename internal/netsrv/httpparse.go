package netsrv

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// httpMessage is one complete request extracted from a connection buffer.
type httpMessage struct {
	method string
	target string // path plus optional query, as sent
	header http.Header
	body   []byte
}

var crlfcrlf = []byte("\r\n\r\n")

// maxHeaderBytes bounds how much we buffer while hunting for the header
// terminator.
const maxHeaderBytes = 64 << 10

// parseHTTPMessage scans buf for one complete (request-line, headers, body)
// message. It returns (nil, 0, nil) when more data is needed. consumed is the
// number of bytes the caller must drop from the buffer; bytes beyond the
// message stay buffered for the next request.
func parseHTTPMessage(buf []byte) (msg *httpMessage, consumed int, err error) {
	end := bytes.Index(buf, crlfcrlf)
	if end < 0 {
		if len(buf) > maxHeaderBytes {
			return nil, 0, fmt.Errorf("header block exceeds %d bytes", maxHeaderBytes)
		}
		return nil, 0, nil
	}

	lines := strings.Split(string(buf[:end]), "\r\n")
	fields := strings.Fields(lines[0])
	// Method and target are required; the protocol version token is ignored.
	if len(fields) < 2 {
		return nil, 0, fmt.Errorf("malformed request line: %q", lines[0])
	}
	m := &httpMessage{
		method: fields[0],
		target: fields[1],
		header: make(http.Header),
	}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		i := strings.IndexByte(line, ':')
		if i < 0 {
			return nil, 0, fmt.Errorf("malformed header line: %q", line)
		}
		m.header.Add(strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]))
	}

	// A missing or unparseable length header means no body, not an error.
	bodyLen := 0
	if v := m.header.Get("Content-Length"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			bodyLen = n
		}
	}

	headerLen := end + len(crlfcrlf)
	total := headerLen + bodyLen
	if len(buf) < total {
		return nil, 0, nil
	}
	m.body = append([]byte(nil), buf[headerLen:total]...)
	return m, total, nil
}
