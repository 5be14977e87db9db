package knowledge

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LoadHTML extracts policy passages from an exported intranet page. Each
// heading starts a new passage; the text until the next heading becomes its
// content. Passage IDs are derived from the heading text.
func LoadHTML(r io.Reader) ([]Passage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML corpus: %w", err)
	}

	var passages []Passage
	doc.Find("h1, h2, h3").Each(func(_ int, heading *goquery.Selection) {
		title := strings.TrimSpace(heading.Text())
		if title == "" {
			return
		}

		var body strings.Builder
		for sib := heading.Next(); sib.Length() > 0; sib = sib.Next() {
			if goquery.NodeName(sib) == "h1" || goquery.NodeName(sib) == "h2" || goquery.NodeName(sib) == "h3" {
				break
			}
			text := strings.TrimSpace(sib.Text())
			if text == "" {
				continue
			}
			if body.Len() > 0 {
				body.WriteString(" ")
			}
			body.WriteString(text)
		}

		content := body.String()
		if content == "" {
			return
		}
		passages = append(passages, Passage{
			ID:      slugify(title),
			Title:   title,
			Content: content,
		})
	})

	if len(passages) == 0 {
		return nil, fmt.Errorf("no passages found in HTML corpus")
	}
	return passages, nil
}

func slugify(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	lastDash := true
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
