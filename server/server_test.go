package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sweetpotato0/deskflow/agent"
	"github.com/sweetpotato0/deskflow/knowledge"
	"github.com/sweetpotato0/deskflow/message"
	"github.com/sweetpotato0/deskflow/pipeline"
	"github.com/sweetpotato0/deskflow/session"
	ticketstore "github.com/sweetpotato0/deskflow/ticket/store"
)

type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	idx := s.calls
	s.calls++
	resp := s.responses[len(s.responses)-1]
	if idx < len(s.responses) {
		resp = s.responses[idx]
	}
	return &agent.GenerateResponse{Message: message.NewMessage(message.RoleAssistant, resp)}, nil
}

func (s *scriptedLLM) SetTemperature(float64) {}
func (s *scriptedLLM) SetModel(string)        {}

type staticKnowledge struct{}

func (staticKnowledge) Search(ctx context.Context, query string) ([]knowledge.Passage, error) {
	return []knowledge.Passage{
		{ID: "wifi-troubleshooting", Title: "Wi-Fi Troubleshooting", Content: "Toggle airplane mode and rejoin the corporate SSID.", Score: 0.8},
	}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *ticketstore.InMemoryStore) {
	t.Helper()
	tickets := ticketstore.NewInMemoryStore()
	o, err := pipeline.NewOrchestrator(
		pipeline.Clients{
			Supervisor: &scriptedLLM{responses: []string{`{"well_formed":true,"refined_query":"Why does the office Wi-Fi keep dropping?","clarifying_question":""}`}},
			Answerer:   &scriptedLLM{responses: []string{"Toggle airplane mode and rejoin the corporate SSID."}},
			Validator:  &scriptedLLM{responses: []string{`{"accurate":true,"relevant":true,"rationale":"matches passage"}`}},
			Summarizer: &scriptedLLM{responses: []string{`{"headline":"Rejoin the corporate SSID","detail":"Toggle airplane mode, then rejoin the corporate SSID to restore a stable connection.","sources":["Wi-Fi Troubleshooting"]}`}},
			Feedback:   &scriptedLLM{responses: []string{`{"class":"unsatisfied","rationale":"the problem persists"}`}},
			Ticket:     &scriptedLLM{responses: []string{`{"issue_summary":"Office Wi-Fi keeps dropping; rejoining the SSID did not help.","category":"Network Issue"}`}},
		},
		staticKnowledge{},
		session.NewManager(nil),
		tickets,
	)
	if err != nil {
		t.Fatalf("NewOrchestrator error: %v", err)
	}
	return httptest.NewServer(NewHandler(o).Router()), tickets
}

func postJSON(t *testing.T, url string, body any) map[string]any {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST %s: status %d", url, resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestFullEscalationFlowOverHTTP(t *testing.T) {
	srv, tickets := newTestServer(t)
	defer srv.Close()

	out := postJSON(t, srv.URL+"/api/v1/query", map[string]any{
		"session_id": "s1", "query": "Why does the office Wi-Fi keep dropping?",
	})
	if out["kind"] != "summary" {
		t.Fatalf("expected summary, got %v", out)
	}

	out = postJSON(t, srv.URL+"/api/v1/feedback", map[string]any{
		"session_id": "s1", "feedback": "this didn't fix my issue",
	})
	if out["kind"] != "escalation_prompt" {
		t.Fatalf("expected escalation prompt, got %v", out)
	}

	out = postJSON(t, srv.URL+"/api/v1/ticket/confirm", map[string]any{
		"session_id": "s1", "confirmed": true,
	})
	if out["kind"] != "ticket" {
		t.Fatalf("expected ticket, got %v", out)
	}
	tk, ok := out["ticket"].(map[string]any)
	if !ok || tk["id"] != "TCK-0001" {
		t.Fatalf("unexpected ticket payload %v", out["ticket"])
	}
	if tickets.Count() != 1 {
		t.Fatalf("expected one stored ticket, got %d", tickets.Count())
	}

	resp, err := http.Get(srv.URL + "/api/v1/tickets")
	if err != nil {
		t.Fatalf("GET tickets: %v", err)
	}
	defer resp.Body.Close()
	var listed struct {
		Tickets []map[string]any `json:"tickets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode tickets: %v", err)
	}
	if len(listed.Tickets) != 1 {
		t.Fatalf("expected 1 listed ticket, got %d", len(listed.Tickets))
	}
}

func TestInvalidRequestsAreRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}

	data, _ := json.Marshal(map[string]any{"session_id": "s1", "query": ""})
	resp, err = http.Post(srv.URL+"/api/v1/query", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty query, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/v1/sessions/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
