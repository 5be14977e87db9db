package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeJSON unmarshals a model reply into T. Replies sometimes arrive
// wrapped in a markdown code fence, with or without a language tag and
// occasionally missing the closing fence; the wrapper is stripped first.
func decodeJSON[T any](raw string) (*T, error) {
	body := strings.TrimSpace(raw)
	if rest, fenced := strings.CutPrefix(body, "```"); fenced {
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if end := strings.LastIndex(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		body = strings.TrimSpace(rest)
	}

	var out T
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return &out, nil
}
