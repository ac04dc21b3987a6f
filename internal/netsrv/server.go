package netsrv

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Offer is a pending signaling payload set by the application when pairing is
// requested: a session description plus the peer it is intended for.
type Offer struct {
	SDP    string
	PeerID string
}

// Options tune the server; zero values select defaults.
type Options struct {
	// GraceWindow is how long a silent connection may stay undetermined
	// before it is treated as a signaling peer.
	GraceWindow time.Duration
}

const defaultGraceWindow = 50 * time.Millisecond

// Server owns the listening socket and every open connection. One port, two
// protocols: connections that open with an HTTP method token are dispatched
// through the handler; everything else becomes a signaling peer. The only
// state shared across connections is the pending offer and the answer
// callback.
type Server struct {
	log     zerolog.Logger
	handler http.Handler
	grace   time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	ln       net.Listener
	conns    map[*conn]struct{}
	pending  *Offer
	onAnswer func(sdp, peerID string)
	closed   bool
}

func New(handler http.Handler, log zerolog.Logger, opts Options) *Server {
	grace := opts.GraceWindow
	if grace <= 0 {
		grace = defaultGraceWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		log:     log.With().Str("component", "netsrv").Logger(),
		handler: handler,
		grace:   grace,
		baseCtx: ctx,
		cancel:  cancel,
		conns:   make(map[*conn]struct{}),
	}
}

// SetHandler installs the HTTP handler. It must be called before Serve;
// late binding exists because the handler layer needs the server for
// signaling state.
func (s *Server) SetHandler(h http.Handler) {
	s.handler = h
}

// Listen binds addr. Serve must be called afterwards.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve runs the accept loop until Shutdown closes the listener.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("netsrv: Serve before Listen")
	}
	for {
		nc, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		c := s.newConn(nc)
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			nc.Close()
			return nil
		}
		s.conns[c] = struct{}{}
		s.mu.Unlock()
		connsOpen.Inc()
		go c.serve()
	}
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe(addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown destroys every open connection and clears all server-wide state.
// There is no drain period.
func (s *Server) Shutdown() {
	s.cancel()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	ln := s.ln
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.pending = nil
	s.onAnswer = nil
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	for _, c := range conns {
		c.close()
	}
	s.log.Info().Int("connections", len(conns)).Msg("shutdown complete")
}

func (s *Server) removeConn(c *conn) {
	s.mu.Lock()
	if _, ok := s.conns[c]; ok {
		delete(s.conns, c)
		connsOpen.Dec()
	}
	s.mu.Unlock()
}

// SetPendingOffer registers the offer delivered to the next signaling peer
// (or polled via GET /offer). An empty peer id gets a fresh one. Returns the
// effective peer id.
func (s *Server) SetPendingOffer(sdp, peerID string) string {
	if peerID == "" {
		peerID = uuid.NewString()
	}
	s.mu.Lock()
	s.pending = &Offer{SDP: sdp, PeerID: peerID}
	s.mu.Unlock()
	return peerID
}

// ClearPendingOffer drops the pending offer, if any.
func (s *Server) ClearPendingOffer() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// PendingOffer returns the pending offer without consuming it.
func (s *Server) PendingOffer() (Offer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Offer{}, false
	}
	return *s.pending, true
}

// OnAnswer registers the callback invoked when a signaling peer (or the
// /webrtc/answer endpoint) delivers an answer.
func (s *Server) OnAnswer(fn func(sdp, peerID string)) {
	s.mu.Lock()
	s.onAnswer = fn
	s.mu.Unlock()
}

// DeliverAnswer routes an answer to the registered callback. It fails when no
// callback is registered.
func (s *Server) DeliverAnswer(sdp, peerID string) error {
	s.mu.Lock()
	fn := s.onAnswer
	s.mu.Unlock()
	if fn == nil {
		return errors.New("no answer callback registered")
	}
	fn(sdp, peerID)
	return nil
}
