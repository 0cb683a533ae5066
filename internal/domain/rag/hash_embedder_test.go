package rag

import (
	"context"
	"math"
	"testing"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(384)
	ctx := context.Background()

	first, err := e.Embed(ctx, []string{"annual leave policy"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	second, err := e.Embed(ctx, []string{"annual leave policy"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("vector differs at index %d between identical inputs", i)
		}
	}
}

func TestHashEmbedderWhitespaceInvariant(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	vecs, err := e.Embed(ctx, []string{"  security guidelines  ", "security guidelines"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			t.Fatalf("surrounding whitespace must not change the vector (index %d)", i)
		}
	}
}

func TestHashEmbedderDistinctTexts(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	vecs, err := e.Embed(ctx, []string{"first document", "second document"})
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	same := true
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("distinct texts produced identical vectors")
	}
}

func TestHashEmbedderUnitNorm(t *testing.T) {
	dims := []int{16, 384, 1536}

	for _, d := range dims {
		e := NewHashEmbedder(d)
		if e.Dims() != d {
			t.Fatalf("Dims() = %d, want %d", e.Dims(), d)
		}

		vecs, err := e.Embed(context.Background(), []string{"norm check"})
		if err != nil {
			t.Fatalf("embed failed: %v", err)
		}
		if len(vecs[0]) != d {
			t.Fatalf("vector length = %d, want %d", len(vecs[0]), d)
		}

		var norm float64
		for _, v := range vecs[0] {
			norm += float64(v) * float64(v)
		}
		norm = math.Sqrt(norm)
		if math.Abs(norm-1.0) > 1e-5 {
			t.Fatalf("dims %d: norm = %f, want 1.0", d, norm)
		}
	}
}

func TestHashEmbedderDefaultDims(t *testing.T) {
	if e := NewHashEmbedder(0); e.Dims() != 384 {
		t.Fatalf("default dims = %d, want 384", e.Dims())
	}
}

func TestHashEmbedderBatchOrder(t *testing.T) {
	e := NewHashEmbedder(32)
	texts := []string{"alpha", "beta", "gamma"}

	batch, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("batch size = %d, want %d", len(batch), len(texts))
	}

	for i, text := range texts {
		single, _ := e.Embed(context.Background(), []string{text})
		for j := range single[0] {
			if batch[i][j] != single[0][j] {
				t.Fatalf("batch vector %d differs from standalone embedding", i)
			}
		}
	}
}
