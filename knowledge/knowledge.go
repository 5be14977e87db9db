// Package knowledge exposes the knowledge provider consumed by the answer
// generation step: given a query it returns an ordered, finite sequence of
// reference passages. Retrieval is stateless, so a retried call simply runs
// the search again.
package knowledge

import "context"

// Passage is one retrieved reference snippet, best match first.
type Passage struct {
	ID      string  `json:"id"`
	Title   string  `json:"title,omitempty"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// Provider retrieves reference passages relevant to a query. It is opaque
// to the pipeline and must be safe for concurrent use.
type Provider interface {
	Search(ctx context.Context, query string) ([]Passage, error)
}
