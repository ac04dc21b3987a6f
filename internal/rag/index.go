package rag

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"peerd/pkg/types"
)

// Embedder produces one vector per input string. The session manager
// satisfies this.
type Embedder interface {
	Embeddings(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

// Index is the in-memory retrieval context: ingested documents split into
// chunks, each with an embedding, scored by cosine similarity at query time.
type Index struct {
	emb Embedder

	mu      sync.RWMutex
	enabled bool
	docs    map[string][]chunk
}

type chunk struct {
	doc  string
	text string
	vec  []float32
}

// Hit is one search result.
type Hit struct {
	Document string  `json:"document"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// disabledError signals retrieval being switched off.
type disabledError struct{}

func (disabledError) Error() string { return "retrieval disabled" }

// IsDisabled reports whether err indicates the index is switched off.
func IsDisabled(err error) bool {
	_, ok := err.(disabledError)
	return ok
}

func New(emb Embedder) *Index {
	return &Index{emb: emb, enabled: true, docs: make(map[string][]chunk)}
}

// SetEnabled toggles retrieval.
func (x *Index) SetEnabled(enabled bool) {
	x.mu.Lock()
	x.enabled = enabled
	x.mu.Unlock()
}

// Enabled reports whether retrieval is switched on.
func (x *Index) Enabled() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.enabled
}

// Status reports document and chunk counts.
func (x *Index) Status() types.RagStatus {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := 0
	for _, cs := range x.docs {
		n += len(cs)
	}
	return types.RagStatus{Enabled: x.enabled, Documents: len(x.docs), Chunks: n}
}

// Ingest splits text into chunks, embeds them and stores them under name,
// replacing any previous document of the same name. Returns the chunk count.
func (x *Index) Ingest(ctx context.Context, name, text string) (int, error) {
	if !x.Enabled() {
		return 0, disabledError{}
	}
	parts := splitChunks(text, 800)
	if len(parts) == 0 {
		return 0, nil
	}
	vecs, err := x.emb.Embeddings(ctx, "", parts)
	if err != nil {
		return 0, err
	}
	cs := make([]chunk, len(parts))
	for i, p := range parts {
		cs[i] = chunk{doc: name, text: p, vec: vecs[i]}
	}
	x.mu.Lock()
	x.docs[name] = cs
	x.mu.Unlock()
	return len(cs), nil
}

// DeleteDocument removes an ingested document. Returns false if unknown.
func (x *Index) DeleteDocument(name string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.docs[name]; !ok {
		return false
	}
	delete(x.docs, name)
	return true
}

// Search embeds query and returns the k best chunks across all documents.
func (x *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if !x.Enabled() {
		return nil, disabledError{}
	}
	if k <= 0 {
		k = 4
	}
	vecs, err := x.emb.Embeddings(ctx, "", []string{query})
	if err != nil {
		return nil, err
	}
	qv := vecs[0]

	x.mu.RLock()
	var hits []Hit
	for _, cs := range x.docs {
		for _, c := range cs {
			hits = append(hits, Hit{Document: c.doc, Text: c.text, Score: cosine(qv, c.vec)})
		}
	}
	x.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// splitChunks breaks text on paragraph boundaries into pieces of at most
// maxLen runes, merging small paragraphs.
func splitChunks(text string, maxLen int) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(para) > maxLen {
			flush()
		}
		for len(para) > maxLen {
			out = append(out, strings.TrimSpace(para[:maxLen]))
			para = para[maxLen:]
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	flush()
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
