package netsrv

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mode is the per-connection protocol decision. It is made once and never
// changes for the lifetime of the connection.
type mode int

const (
	modeUndetermined mode = iota
	modeHTTP
	modeSignaling
)

func (m mode) String() string {
	switch m {
	case modeHTTP:
		return "http"
	case modeSignaling:
		return "signaling"
	default:
		return "undetermined"
	}
}

type conn struct {
	srv    *Server
	nc     net.Conn
	ctx    context.Context
	cancel context.CancelFunc
	peerID string

	mu         sync.Mutex // guards mode, buf, graceTimer
	mode       mode
	buf        []byte
	graceTimer *time.Timer

	wmu sync.Mutex // serializes signaling writes (timer vs. read goroutine)

	closeOnce sync.Once
}

func (s *Server) newConn(nc net.Conn) *conn {
	ctx, cancel := context.WithCancel(s.baseCtx)
	return &conn{srv: s, nc: nc, ctx: ctx, cancel: cancel}
}

func (c *conn) serve() {
	defer c.close()

	// HTTP clients and signaling clients share one port; the protocol is
	// unknowable before any bytes arrive, so silence decides.
	c.mu.Lock()
	c.graceTimer = time.AfterFunc(c.srv.grace, c.graceExpired)
	c.mu.Unlock()

	rbuf := make([]byte, 32<<10)
	for {
		n, err := c.nc.Read(rbuf)
		if n > 0 {
			c.mu.Lock()
			c.buf = append(c.buf, rbuf[:n]...)
			c.mu.Unlock()
			if done := c.process(); done {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// process drains whatever complete units the buffer holds, deciding the
// connection mode first if still undetermined. Returns true when the
// connection should close.
func (c *conn) process() bool {
	c.mu.Lock()
	if c.mode == modeUndetermined {
		switch detectHTTP(c.buf) {
		case detNeedMore:
			c.mu.Unlock()
			return false
		case detHTTP:
			c.lockModeLocked(modeHTTP)
			c.mu.Unlock()
		case detNotHTTP:
			offer := c.lockModeLocked(modeSignaling)
			c.mu.Unlock()
			if offer != nil {
				c.sendOffer(*offer)
			}
		}
	} else {
		c.mu.Unlock()
	}

	c.mu.Lock()
	m := c.mode
	c.mu.Unlock()
	switch m {
	case modeHTTP:
		return c.serveHTTP()
	case modeSignaling:
		c.drainSignalLines()
	}
	return false
}

// graceExpired fires when no recognizable HTTP bytes arrived in time: the
// connection is a signaling peer and gets the pending offer immediately.
func (c *conn) graceExpired() {
	c.mu.Lock()
	if c.mode != modeUndetermined {
		c.mu.Unlock()
		return
	}
	offer := c.lockModeLocked(modeSignaling)
	c.mu.Unlock()
	if offer != nil {
		c.sendOffer(*offer)
	}
	// Any bytes that were buffered but not yet decisive are signaling lines.
	c.drainSignalLines()
}

// lockModeLocked commits the connection mode, cancels the grace timer and,
// for signaling, assigns the peer identity and picks up the pending offer.
// Caller holds c.mu.
func (c *conn) lockModeLocked(m mode) *Offer {
	c.mode = m
	if c.graceTimer != nil {
		c.graceTimer.Stop()
	}
	connModeTotal.WithLabelValues(m.String()).Inc()
	if m != modeSignaling {
		return nil
	}
	if offer, ok := c.srv.PendingOffer(); ok {
		c.peerID = offer.PeerID
		return &offer
	}
	c.peerID = uuid.NewString()
	return nil
}

// detection is the tri-state outcome of sniffing the first bytes.
type detection int

const (
	detNeedMore detection = iota
	detHTTP
	detNotHTTP
)

var methodTokens = []string{
	"GET ", "POST ", "PUT ", "DELETE ", "HEAD ", "OPTIONS ", "PATCH ",
}

// detectHTTP inspects the first bytes of a connection for a known HTTP
// method token.
func detectHTTP(buf []byte) detection {
	if len(buf) == 0 {
		return detNeedMore
	}
	partial := false
	for _, tok := range methodTokens {
		if len(buf) >= len(tok) {
			if string(buf[:len(tok)]) == tok {
				return detHTTP
			}
			continue
		}
		if bytes.HasPrefix([]byte(tok), buf) {
			partial = true
		}
	}
	if partial {
		return detNeedMore
	}
	return detNotHTTP
}

// serveHTTP extracts and dispatches every complete request currently
// buffered, in order, then closes the connection (no keep-alive).
func (c *conn) serveHTTP() bool {
	served := false
	for {
		c.mu.Lock()
		msg, consumed, err := parseHTTPMessage(c.buf)
		if err != nil {
			c.mu.Unlock()
			c.srv.log.Debug().Err(err).Msg("unparseable request")
			c.writeRawError(http.StatusBadRequest, "bad_request")
			return true
		}
		if msg == nil {
			c.mu.Unlock()
			break
		}
		c.buf = c.buf[consumed:]
		c.mu.Unlock()

		served = true
		c.handleRequest(msg)
	}
	return served
}

// handleRequest materializes the parsed message as an *http.Request and runs
// it through the server's handler with a chunk-capable writer.
func (c *conn) handleRequest(msg *httpMessage) {
	u, err := url.ParseRequestURI(msg.target)
	if err != nil {
		c.writeRawError(http.StatusBadRequest, "bad_request")
		return
	}
	req := &http.Request{
		Method:        msg.method,
		URL:           u,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        msg.header,
		Body:          io.NopCloser(bytes.NewReader(msg.body)),
		ContentLength: int64(len(msg.body)),
		Host:          msg.header.Get("Host"),
		RemoteAddr:    c.nc.RemoteAddr().String(),
		RequestURI:    msg.target,
	}
	req = req.WithContext(c.ctx)

	rw := newResponseWriter(c.nc)
	c.srv.handler.ServeHTTP(rw, req)
	rw.finish()
}

// writeRawError emits a minimal error response without going through the
// router; used when the request never parsed.
func (c *conn) writeRawError(status int, code string) {
	rw := newResponseWriter(c.nc)
	body := []byte(`{"error":"` + code + `"}`)
	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set("Content-Length", strconv.Itoa(len(body)))
	rw.WriteHeader(status)
	rw.Write(body)
	rw.finish()
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		if c.graceTimer != nil {
			c.graceTimer.Stop()
		}
		c.buf = nil
		c.mu.Unlock()
		c.nc.Close()
		c.srv.removeConn(c)
	})
}
