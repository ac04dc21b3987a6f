package registry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPullerDownloadsAndRescans(t *testing.T) {
	body := []byte("fake-gguf-payload")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer ts.Close()

	r := newTestRegistry(t)
	p := NewPuller(r, zerolog.Nop())
	if _, err := p.Start(ts.URL, "pulled"); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		st := p.Status()
		if len(st) == 1 && st[0].Done {
			if st[0].Error != "" {
				t.Fatalf("pull error: %s", st[0].Error)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("pull did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := r.Resolve("pulled.gguf"); !ok {
		t.Fatal("pulled model not registered")
	}
}

func TestPullerRejectsBadInput(t *testing.T) {
	r := newTestRegistry(t)
	p := NewPuller(r, zerolog.Nop())
	if _, err := p.Start("ftp://example.com/m.gguf", "m"); !IsPullInvalid(err) {
		t.Fatalf("expected pull invalid for bad scheme, got %v", err)
	}
	if _, err := p.Start("https://example.com/m.gguf", "../evil"); !IsPullInvalid(err) {
		t.Fatalf("expected pull invalid for bad name, got %v", err)
	}
}
