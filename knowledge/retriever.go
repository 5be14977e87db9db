package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/deskflow/pkg/logging"
	"github.com/sweetpotato0/deskflow/vector"
)

// RetrieverConfig controls the vector-backed provider.
type RetrieverConfig struct {
	TopK     int     // How many neighbors to pull from the vector store
	MinScore float32 // Matches below this similarity are discarded
}

// DefaultRetrieverConfig mirrors the retrieval shape of the original
// knowledge base: three neighbors, weak matches filtered out.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		TopK:     3,
		MinScore: 0.5,
	}
}

// Retriever implements Provider on top of an embedder and a vector store.
type Retriever struct {
	embedder vector.Embedder
	store    vector.VectorStore
	cfg      RetrieverConfig
	logger   *slog.Logger
}

// NewRetriever creates a vector-backed knowledge provider.
func NewRetriever(embedder vector.Embedder, store vector.VectorStore, cfg RetrieverConfig) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultRetrieverConfig().TopK
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		logger:   logging.WithComponent("knowledge"),
	}, nil
}

// Index embeds passages and stores them for retrieval.
func (r *Retriever) Index(ctx context.Context, passages ...Passage) error {
	if len(passages) == 0 {
		return nil
	}
	texts := make([]string, len(passages))
	for i, p := range passages {
		if strings.TrimSpace(p.Content) == "" {
			return fmt.Errorf("passage %q has empty content", p.ID)
		}
		texts[i] = p.Content
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed passages: %w", err)
	}
	if len(vectors) != len(passages) {
		return fmt.Errorf("expected %d embeddings, got %d", len(passages), len(vectors))
	}

	for i, p := range passages {
		emb := &vector.Embedding{
			ID:     p.ID,
			Vector: vector.Normalize(vectors[i]),
			Text:   p.Content,
			Metadata: map[string]string{
				"title": p.Title,
			},
		}
		if err := r.store.AddEmbedding(ctx, emb); err != nil {
			return fmt.Errorf("store passage %q: %w", p.ID, err)
		}
	}
	r.logger.Info("passages indexed", "count", len(passages))
	return nil
}

// Search returns the best-matching passages for the query, strongest first.
// Weak matches are filtered by the configured score floor; an empty result
// means no relevant passage exists, not an error.
func (r *Retriever) Search(ctx context.Context, query string) ([]Passage, error) {
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := r.store.Search(ctx, vector.Normalize(queryVec), r.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	passages := make([]Passage, 0, len(matches))
	for _, m := range matches {
		if m.Score < r.cfg.MinScore {
			r.logger.Debug("ignored weak match", "id", m.Embedding.ID, "score", m.Score)
			continue
		}
		passages = append(passages, Passage{
			ID:      m.Embedding.ID,
			Title:   m.Embedding.Metadata["title"],
			Content: m.Embedding.Text,
			Score:   m.Score,
		})
	}
	r.logger.Debug("knowledge search", "query_len", len(query), "hits", len(passages))
	return passages, nil
}

// Count returns the number of indexed passages.
func (r *Retriever) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}

// Clear removes every indexed passage.
func (r *Retriever) Clear(ctx context.Context) error {
	return r.store.Clear(ctx)
}
