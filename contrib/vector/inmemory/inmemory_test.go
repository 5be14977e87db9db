package inmemory

import (
	"context"
	"testing"

	"github.com/sweetpotato0/deskflow/vector"
)

func embedding(id string, vec []float32) *vector.Embedding {
	return &vector.Embedding{ID: id, Vector: vec, Text: id}
}

func TestAddAndSearch(t *testing.T) {
	s := NewInMemoryVectorStore()
	ctx := context.Background()

	if err := s.AddEmbedding(ctx, embedding("x", []float32{1, 0})); err != nil {
		t.Fatalf("AddEmbedding error: %v", err)
	}
	if err := s.AddEmbedding(ctx, embedding("y", []float32{0, 1})); err != nil {
		t.Fatalf("AddEmbedding error: %v", err)
	}
	if err := s.AddEmbedding(ctx, embedding("xy", []float32{1, 1})); err != nil {
		t.Fatalf("AddEmbedding error: %v", err)
	}

	matches, err := s.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected topK=2 matches, got %d", len(matches))
	}
	if matches[0].Embedding.ID != "x" {
		t.Fatalf("expected exact match first, got %q", matches[0].Embedding.ID)
	}
	if matches[0].Score < matches[1].Score {
		t.Fatal("matches not ordered by score")
	}
}

func TestSearchSkipsMismatchedDimensions(t *testing.T) {
	s := NewInMemoryVectorStore()
	ctx := context.Background()
	if err := s.AddEmbedding(ctx, embedding("wide", []float32{1, 0, 0})); err != nil {
		t.Fatalf("AddEmbedding error: %v", err)
	}
	matches, err := s.Search(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected mismatched vector to be skipped, got %d matches", len(matches))
	}
}

func TestAddEmbeddingValidation(t *testing.T) {
	s := NewInMemoryVectorStore()
	ctx := context.Background()
	if err := s.AddEmbedding(ctx, nil); err == nil {
		t.Fatal("nil embedding accepted")
	}
	if err := s.AddEmbedding(ctx, embedding("", []float32{1})); err == nil {
		t.Fatal("empty id accepted")
	}
	if err := s.AddEmbedding(ctx, embedding("x", nil)); err == nil {
		t.Fatal("empty vector accepted")
	}
}

func TestDeleteAndClear(t *testing.T) {
	s := NewInMemoryVectorStore()
	ctx := context.Background()
	if err := s.AddEmbedding(ctx, embedding("x", []float32{1})); err != nil {
		t.Fatalf("AddEmbedding error: %v", err)
	}

	if err := s.DeleteEmbedding(ctx, "missing"); err == nil {
		t.Fatal("deleting unknown id should fail")
	}
	if err := s.DeleteEmbedding(ctx, "x"); err != nil {
		t.Fatalf("DeleteEmbedding error: %v", err)
	}

	if err := s.AddEmbedding(ctx, embedding("y", []float32{1})); err != nil {
		t.Fatalf("AddEmbedding error: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty store, got %d", n)
	}
}
