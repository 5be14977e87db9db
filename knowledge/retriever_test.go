package knowledge

import (
	"context"
	"strings"
	"testing"

	"github.com/sweetpotato0/deskflow/contrib/vector/inmemory"
)

// axisEmbedder projects text onto fixed keyword axes so similarity is
// predictable in tests.
type axisEmbedder struct {
	axes []string
}

func (e *axisEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.axes))
	for i, kw := range e.axes {
		if strings.Contains(lower, kw) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func (e *axisEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *axisEmbedder) Dimension() int { return len(e.axes) }

func newTestRetriever(t *testing.T) *Retriever {
	t.Helper()
	embedder := &axisEmbedder{axes: []string{"vpn", "printer", "password"}}
	r, err := NewRetriever(embedder, inmemory.NewInMemoryVectorStore(), DefaultRetrieverConfig())
	if err != nil {
		t.Fatalf("NewRetriever error: %v", err)
	}
	err = r.Index(context.Background(),
		Passage{ID: "vpn-issue", Title: "VPN Issue", Content: "Update your vpn client and reconnect."},
		Passage{ID: "printer-not-working", Title: "Printer Not Working", Content: "Check the printer power cable and drivers."},
		Passage{ID: "password-reset", Title: "Password Reset", Content: "Use the portal to reset a forgotten password."},
	)
	if err != nil {
		t.Fatalf("Index error: %v", err)
	}
	return r
}

func TestSearchReturnsStrongestFirst(t *testing.T) {
	r := newTestRetriever(t)

	passages, err := r.Search(context.Background(), "my vpn keeps disconnecting")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(passages) == 0 {
		t.Fatal("expected at least one passage")
	}
	if passages[0].ID != "vpn-issue" {
		t.Fatalf("expected vpn-issue first, got %q", passages[0].ID)
	}
	if passages[0].Title != "VPN Issue" {
		t.Fatalf("expected title metadata preserved, got %q", passages[0].Title)
	}
	for i := 1; i < len(passages); i++ {
		if passages[i].Score > passages[i-1].Score {
			t.Fatal("passages not sorted strongest first")
		}
	}
}

func TestSearchFiltersWeakMatches(t *testing.T) {
	r := newTestRetriever(t)

	passages, err := r.Search(context.Background(), "how do I book a meeting room")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(passages) != 0 {
		t.Fatalf("expected no passage above the score floor, got %d", len(passages))
	}
}

func TestIndexRejectsEmptyContent(t *testing.T) {
	embedder := &axisEmbedder{axes: []string{"vpn"}}
	r, err := NewRetriever(embedder, inmemory.NewInMemoryVectorStore(), DefaultRetrieverConfig())
	if err != nil {
		t.Fatalf("NewRetriever error: %v", err)
	}
	if err := r.Index(context.Background(), Passage{ID: "blank", Content: "   "}); err == nil {
		t.Fatal("expected error for empty passage content")
	}
}

func TestDefaultCorpusIsNonEmpty(t *testing.T) {
	corpus := DefaultCorpus()
	if len(corpus) == 0 {
		t.Fatal("expected built-in passages")
	}
	seen := make(map[string]bool, len(corpus))
	for _, p := range corpus {
		if p.ID == "" || p.Title == "" || p.Content == "" {
			t.Fatalf("incomplete passage %+v", p)
		}
		if seen[p.ID] {
			t.Fatalf("duplicate passage id %q", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestLoadHTML(t *testing.T) {
	page := `<html><body>
		<h1>Remote Work Policy</h1>
		<p>Employees can work remotely up to 3 days a week.</p>
		<p>Fully remote roles need approval.</p>
		<h2>VPN Issue</h2>
		<p>Update the VPN client before escalating.</p>
		<h2></h2>
		<h3>Empty Section</h3>
	</body></html>`

	passages, err := LoadHTML(strings.NewReader(page))
	if err != nil {
		t.Fatalf("LoadHTML error: %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	if passages[0].ID != "remote-work-policy" {
		t.Fatalf("unexpected slug %q", passages[0].ID)
	}
	if !strings.Contains(passages[0].Content, "3 days a week") || !strings.Contains(passages[0].Content, "need approval") {
		t.Fatalf("heading body not merged: %q", passages[0].Content)
	}
	if passages[1].Title != "VPN Issue" {
		t.Fatalf("unexpected second passage %+v", passages[1])
	}
}

func TestLoadHTMLNoHeadings(t *testing.T) {
	if _, err := LoadHTML(strings.NewReader("<html><body><p>just text</p></body></html>")); err == nil {
		t.Fatal("expected error for corpus without headings")
	}
}
