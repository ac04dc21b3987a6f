package registry

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"peerd/pkg/types"
)

// Puller downloads model files into the registry directory. Downloads run in
// the background; progress is polled via Status. A download writes to a
// ".partial" file and is renamed into place only on success, so the registry
// never lists half-written models.
type Puller struct {
	reg    *Registry
	log    zerolog.Logger
	client *http.Client

	mu   sync.Mutex
	jobs map[string]*pullJob
}

type pullJob struct {
	model    string
	url      string
	received int64
	total    int64
	done     bool
	err      string
}

func NewPuller(reg *Registry, log zerolog.Logger) *Puller {
	return &Puller{
		reg:    reg,
		log:    log.With().Str("component", "puller").Logger(),
		client: &http.Client{Timeout: 0}, // large files, no overall timeout
		jobs:   make(map[string]*pullJob),
	}
}

// Start begins downloading rawURL into the registry under model. If a
// download for the same model is already running, it is left alone and its
// current status is returned.
func (p *Puller) Start(rawURL, model string) (types.PullStatus, error) {
	model = strings.TrimSpace(model)
	if model == "" || !validDestination(model) {
		return types.PullStatus{}, pullInvalidError{msg: "invalid model name: " + model}
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return types.PullStatus{}, pullInvalidError{msg: "invalid url: " + rawURL}
	}
	if !strings.HasSuffix(strings.ToLower(model), ".gguf") {
		model += ".gguf"
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if j, ok := p.jobs[model]; ok && !j.done {
		return j.status(), nil
	}
	j := &pullJob{model: model, url: u.String(), total: -1}
	p.jobs[model] = j
	go p.run(j)
	return j.status(), nil
}

// Status returns all known jobs, newest error-free first just by model name.
func (p *Puller) Status() []types.PullStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.PullStatus, 0, len(p.jobs))
	for _, j := range p.jobs {
		out = append(out, j.status())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Model < out[k].Model })
	return out
}

func (j *pullJob) status() types.PullStatus {
	return types.PullStatus{
		Model:    j.model,
		URL:      j.url,
		Received: j.received,
		Total:    j.total,
		Done:     j.done,
		Error:    j.err,
	}
}

func (p *Puller) run(j *pullJob) {
	err := p.download(j)
	p.mu.Lock()
	j.done = true
	if err != nil {
		j.err = err.Error()
	}
	p.mu.Unlock()
	if err != nil {
		p.log.Error().Err(err).Str("model", j.model).Msg("pull failed")
		return
	}
	p.log.Info().Str("model", j.model).Int64("bytes", j.received).Msg("pull complete")
	if err := p.reg.Rescan(); err != nil {
		p.log.Error().Err(err).Msg("rescan after pull")
	}
}

func (p *Puller) download(j *pullJob) error {
	resp, err := p.client.Get(j.url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	p.mu.Lock()
	j.total = resp.ContentLength
	p.mu.Unlock()

	partial := filepath.Join(p.reg.Dir(), j.model+".partial")
	f, err := os.Create(partial)
	if err != nil {
		return err
	}
	buf := make([]byte, 1<<20)
	var received int64
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				os.Remove(partial)
				return werr
			}
			received += int64(n)
			p.mu.Lock()
			j.received = received
			p.mu.Unlock()
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			f.Close()
			os.Remove(partial)
			return rerr
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(partial)
		return err
	}
	final := filepath.Join(p.reg.Dir(), j.model)
	if err := os.Rename(partial, final); err != nil {
		os.Remove(partial)
		return err
	}
	// Keep the mtime fresh so listings sort sensibly.
	now := time.Now()
	_ = os.Chtimes(final, now, now)
	return nil
}
