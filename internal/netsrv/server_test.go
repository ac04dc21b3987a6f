package netsrv

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"peerd/pkg/types"
)

func echoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		resp := map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
			"query":  r.URL.RawQuery,
			"body":   string(body),
		}
		b, _ := json.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(b)))
		w.Write(b)
	})
}

func startTestServer(t *testing.T, h http.Handler) *Server {
	t.Helper()
	s := New(h, zerolog.Nop(), Options{GraceWindow: 250 * time.Millisecond})
	if err := s.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	go s.Serve()
	t.Cleanup(s.Shutdown)
	return s
}

func dialTest(t *testing.T, s *Server) net.Conn {
	t.Helper()
	nc, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { nc.Close() })
	nc.SetDeadline(time.Now().Add(5 * time.Second))
	return nc
}

func TestHTTPRequestInTinyChunks(t *testing.T) {
	s := startTestServer(t, echoHandler())
	nc := dialTest(t, s)

	raw := "POST /api/x?a=1 HTTP/1.1\r\nHost: t\r\nContent-Length: 5\r\n\r\nhello"
	for i := 0; i < len(raw); i += 3 {
		end := i + 3
		if end > len(raw) {
			end = len(raw)
		}
		if _, err := nc.Write([]byte(raw[i:end])); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	out, err := io.ReadAll(nc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	resp := string(out)
	if !strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("response: %q", resp)
	}
	if !strings.Contains(resp, `"body":"hello"`) || !strings.Contains(resp, `"query":"a=1"`) {
		t.Fatalf("echo payload: %q", resp)
	}
}

func TestPipelinedRequestsInOneChunk(t *testing.T) {
	s := startTestServer(t, echoHandler())
	nc := dialTest(t, s)

	two := "GET /first HTTP/1.1\r\nHost: t\r\n\r\n" +
		"GET /second HTTP/1.1\r\nHost: t\r\n\r\n"
	if _, err := nc.Write([]byte(two)); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := io.ReadAll(nc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	resp := string(out)
	if strings.Count(resp, "HTTP/1.1 200 OK") != 2 {
		t.Fatalf("expected two responses: %q", resp)
	}
	first := strings.Index(resp, `"path":"/first"`)
	second := strings.Index(resp, `"path":"/second"`)
	if first < 0 || second < 0 || second < first {
		t.Fatalf("requests not handled in order: %q", resp)
	}
}

func TestSignalingGraceDeliversOffer(t *testing.T) {
	s := startTestServer(t, echoHandler())
	s.SetPendingOffer("v=0 fake-sdp", "peer-1")
	nc := dialTest(t, s)

	// Send nothing: the grace window must decide signaling and deliver the
	// pending offer.
	line, err := bufio.NewReader(nc).ReadString('\n')
	if err != nil {
		t.Fatalf("read offer: %v", err)
	}
	var msg types.SignalMessage
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		t.Fatalf("offer json: %v", err)
	}
	if msg.Type != "offer" || msg.PeerID != "peer-1" {
		t.Fatalf("offer: %+v", msg)
	}
	var sdp string
	if err := json.Unmarshal(msg.Data, &sdp); err != nil || sdp != "v=0 fake-sdp" {
		t.Fatalf("sdp: %q %v", sdp, err)
	}
}

func TestSignalingBatchWithMalformedLine(t *testing.T) {
	s := startTestServer(t, echoHandler())

	var mu sync.Mutex
	var answers [][2]string
	s.OnAnswer(func(sdp, peerID string) {
		mu.Lock()
		answers = append(answers, [2]string{sdp, peerID})
		mu.Unlock()
	})

	nc := dialTest(t, s)
	batch := `{"type":"ping"}` + "\n" +
		"this is not json\n" +
		`{"type":"answer","data":"the-sdp","peerId":"p9"}` + "\n"
	if _, err := nc.Write([]byte(batch)); err != nil {
		t.Fatalf("write: %v", err)
	}

	r := bufio.NewReader(nc)
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read reply %d: %v", i, err)
		}
		var msg types.SignalMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("reply json: %v", err)
		}
		seen[msg.Type] = true
	}
	if !seen["ping"] || !seen["connected"] {
		t.Fatalf("replies: %v", seen)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(answers) != 1 || answers[0] != [2]string{"the-sdp", "p9"} {
		t.Fatalf("answers: %v", answers)
	}
}

func TestModeIsSticky(t *testing.T) {
	s := startTestServer(t, echoHandler())
	nc := dialTest(t, s)

	// First bytes decide signaling; later HTTP-looking bytes must still be
	// treated as signaling lines, not requests.
	if _, err := nc.Write([]byte("{\"type\":\"ping\"}\nGET / HTTP/1.1\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := bufio.NewReader(nc)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(line, `"ping"`) {
		t.Fatalf("expected pong line, got %q", line)
	}
	// No HTTP response may follow.
	nc.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if extra, err := r.ReadString('\n'); err == nil && strings.HasPrefix(extra, "HTTP/") {
		t.Fatalf("HTTP response on signaling connection: %q", extra)
	}
}

func TestShutdownDestroysConnectionsAndState(t *testing.T) {
	s := startTestServer(t, echoHandler())
	s.SetPendingOffer("sdp", "p")
	s.OnAnswer(func(string, string) {})
	nc := dialTest(t, s)

	s.Shutdown()

	nc.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := nc.Read(make([]byte, 1)); err == nil {
		t.Fatal("connection should be closed after shutdown")
	}
	if _, ok := s.PendingOffer(); ok {
		t.Fatal("pending offer must be cleared on shutdown")
	}
	if err := s.DeliverAnswer("x", "y"); err == nil {
		t.Fatal("answer callback must be cleared on shutdown")
	}
}
