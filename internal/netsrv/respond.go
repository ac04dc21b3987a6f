package netsrv

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// responseWriter writes an HTTP/1.1 response straight onto the connection.
// Headers go out on the first write; a handler that never sets
// Content-Length gets chunked transfer framing, one chunk per Write call, so
// streaming handlers control chunk boundaries. Connections never keep alive:
// Connection: close is forced on every response.
//
// Lifecycle: started -> streaming -> {done | aborted}. After a write error
// the writer is aborted and every further write is swallowed.
type responseWriter struct {
	bw          *bufio.Writer
	header      http.Header
	status      int
	wroteHeader bool
	chunked     bool
	aborted     bool
}

var _ http.ResponseWriter = (*responseWriter)(nil)
var _ http.Flusher = (*responseWriter)(nil)

func newResponseWriter(w io.Writer) *responseWriter {
	return &responseWriter{bw: bufio.NewWriter(w), header: make(http.Header)}
}

func (rw *responseWriter) Header() http.Header { return rw.header }

func (rw *responseWriter) WriteHeader(status int) {
	if rw.wroteHeader || rw.aborted {
		return
	}
	rw.wroteHeader = true
	rw.status = status

	rw.header.Set("Connection", "close")
	if rw.header.Get("Content-Length") == "" && bodyAllowed(status) {
		rw.chunked = true
		rw.header.Set("Transfer-Encoding", "chunked")
	}

	text := http.StatusText(status)
	if text == "" {
		text = "Status"
	}
	if _, err := fmt.Fprintf(rw.bw, "HTTP/1.1 %d %s\r\n", status, text); err != nil {
		rw.aborted = true
		return
	}
	if err := rw.header.Write(rw.bw); err != nil {
		rw.aborted = true
		return
	}
	if _, err := io.WriteString(rw.bw, "\r\n"); err != nil {
		rw.aborted = true
		return
	}
	// Push headers to the peer before any content exists, so a streaming
	// client sees the response start immediately.
	if err := rw.bw.Flush(); err != nil {
		rw.aborted = true
	}
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.aborted {
		return 0, io.ErrClosedPipe
	}
	if rw.chunked {
		if _, err := io.WriteString(rw.bw, strconv.FormatInt(int64(len(p)), 16)+"\r\n"); err != nil {
			rw.aborted = true
			return 0, err
		}
		if _, err := rw.bw.Write(p); err != nil {
			rw.aborted = true
			return 0, err
		}
		if _, err := io.WriteString(rw.bw, "\r\n"); err != nil {
			rw.aborted = true
			return 0, err
		}
		return len(p), nil
	}
	n, err := rw.bw.Write(p)
	if err != nil {
		rw.aborted = true
	}
	return n, err
}

func (rw *responseWriter) Flush() {
	if rw.aborted {
		return
	}
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	if err := rw.bw.Flush(); err != nil {
		rw.aborted = true
	}
}

// finish terminates the response. For chunked bodies it writes the single
// zero-length terminal chunk; exactly once, whatever path the handler took.
func (rw *responseWriter) finish() {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.aborted {
		return
	}
	if rw.chunked {
		if _, err := io.WriteString(rw.bw, "0\r\n\r\n"); err != nil {
			rw.aborted = true
			return
		}
	}
	if err := rw.bw.Flush(); err != nil {
		rw.aborted = true
	}
}

func bodyAllowed(status int) bool {
	if status >= 100 && status < 200 {
		return false
	}
	return status != http.StatusNoContent && status != http.StatusNotModified
}
