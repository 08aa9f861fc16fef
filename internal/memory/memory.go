// Package memory adapts the workspace vector store into the long-term
// memory interface the remember/recall tools consume. Texts are embedded
// through the model provider and stored per-workspace in chromem.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/biwa/internal/store"
	"github.com/harunnryd/biwa/internal/tool"
)

// Embedder produces an embedding vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the slice of the store worker memory needs.
type VectorStore interface {
	UpsertVector(collection, id string, vector []float32, metadata map[string]string, content string) error
	SearchVectors(collection string, vector []float32, limit int) ([]store.VectorResult, error)
}

type Store struct {
	vectors    VectorStore
	embedder   Embedder
	collection string
}

func New(vectors VectorStore, embedder Embedder, collection string) *Store {
	if strings.TrimSpace(collection) == "" {
		collection = "memories"
	}
	return &Store{
		vectors:    vectors,
		embedder:   embedder,
		collection: collection,
	}
}

func (s *Store) Remember(ctx context.Context, text string) (string, error) {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed memory: %w", err)
	}

	id := store.NewEntryID()
	err = s.vectors.UpsertVector(s.collection, id, vector, map[string]string{
		"stored_at": time.Now().UTC().Format(time.RFC3339),
	}, text)
	if err != nil {
		return "", fmt.Errorf("upsert memory: %w", err)
	}
	return id, nil
}

func (s *Store) Recall(ctx context.Context, query string, limit int, minSimilarity float64) ([]tool.MemoryHit, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.vectors.SearchVectors(s.collection, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}

	hits := make([]tool.MemoryHit, 0, len(results))
	for _, r := range results {
		if float64(r.Score) < minSimilarity {
			continue
		}
		hits = append(hits, tool.MemoryHit{
			ID:         r.ID,
			Text:       r.Content,
			Similarity: float64(r.Score),
		})
	}
	return hits, nil
}
