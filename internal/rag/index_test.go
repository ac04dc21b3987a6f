package rag

import (
	"context"
	"strings"
	"testing"
)

// wordEmbedder embeds by counting occurrences of a fixed vocabulary so tests
// get deterministic, meaningful similarity.
type wordEmbedder struct{ vocab []string }

func (e wordEmbedder) Embeddings(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		vec := make([]float32, len(e.vocab))
		for j, w := range e.vocab {
			vec[j] = float32(strings.Count(strings.ToLower(in), w))
		}
		out[i] = vec
	}
	return out, nil
}

func newTestIndex() *Index {
	return New(wordEmbedder{vocab: []string{"cat", "dog", "fish"}})
}

func TestIngestAndSearch(t *testing.T) {
	x := newTestIndex()
	ctx := context.Background()
	if _, err := x.Ingest(ctx, "pets", "cats and more cat facts\n\ndogs are dog"); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	hits, err := x.Search(ctx, "tell me about a cat", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || !strings.Contains(hits[0].Text, "cat") {
		t.Fatalf("hits: %+v", hits)
	}
}

func TestDisabled(t *testing.T) {
	x := newTestIndex()
	x.SetEnabled(false)
	if _, err := x.Ingest(context.Background(), "d", "cat"); !IsDisabled(err) {
		t.Fatalf("expected disabled, got %v", err)
	}
	if _, err := x.Search(context.Background(), "cat", 1); !IsDisabled(err) {
		t.Fatalf("expected disabled, got %v", err)
	}
	st := x.Status()
	if st.Enabled || st.Documents != 0 {
		t.Fatalf("status: %+v", st)
	}
}

func TestDeleteDocument(t *testing.T) {
	x := newTestIndex()
	if _, err := x.Ingest(context.Background(), "d", "dog"); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !x.DeleteDocument("d") {
		t.Fatal("delete should succeed")
	}
	if x.DeleteDocument("d") {
		t.Fatal("second delete should fail")
	}
}

func TestSplitChunks(t *testing.T) {
	long := strings.Repeat("x", 1700)
	parts := splitChunks(long, 800)
	if len(parts) != 3 {
		t.Fatalf("parts=%d", len(parts))
	}
	if parts := splitChunks("  \n\n  ", 800); len(parts) != 0 {
		t.Fatalf("expected no chunks, got %v", parts)
	}
}
