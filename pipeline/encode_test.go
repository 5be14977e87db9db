package pipeline

import "testing"

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"name":"a"}`, "a"},
		{"fenced", "```\n{\"name\":\"b\"}\n```", "b"},
		{"fenced with tag", "```json\n{\"name\":\"c\"}\n```", "c"},
		{"uppercase tag", "```JSON\n{\"name\":\"d\"}\n```", "d"},
		{"missing closing fence", "```json\n{\"name\":\"e\"}", "e"},
		{"surrounding whitespace", "  \n```json\n{\"name\":\"f\"}\n```  \n", "f"},
	}
	for _, tc := range cases {
		out, err := decodeJSON[payload](tc.raw)
		if err != nil {
			t.Errorf("%s: decodeJSON error: %v", tc.name, err)
			continue
		}
		if out.Name != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, out.Name, tc.want)
		}
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	type payload struct{}
	if _, err := decodeJSON[payload]("the model rambled instead of emitting JSON"); err == nil {
		t.Fatal("expected a decode error for non-JSON output")
	}
}
