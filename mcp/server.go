// Package mcp exposes the pipeline operations as MCP tools so external
// assistants can drive a helpdesk conversation programmatically.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sweetpotato0/deskflow/pipeline"
)

// NewServer builds an MCP server wrapping the orchestrator. The caller owns
// the transport (stdio or streamable HTTP).
func NewServer(pipe *pipeline.Orchestrator, version string) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "deskflow",
		Version: version,
		Title:   "deskflow helpdesk pipeline",
	}, nil)

	addSubmitQuery(server, pipe)
	addSubmitClarification(server, pipe)
	addSubmitFeedback(server, pipe)
	addConfirmTicket(server, pipe)
	addListTickets(server, pipe)

	return server
}

func addSubmitQuery(server *sdkmcp.Server, pipe *pipeline.Orchestrator) {
	type args struct {
		SessionID string `json:"session_id" jsonschema:"Stable identifier of the conversation"`
		Query     string `json:"query" jsonschema:"The user's natural-language question"`
	}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "submit_query",
		Description: "Start or resume a helpdesk query; returns a summary, a clarifying question, or a rejection",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, a args) (*sdkmcp.CallToolResult, any, error) {
		res, err := pipe.SubmitQuery(ctx, a.SessionID, a.Query)
		if err != nil {
			return nil, nil, err
		}
		return turnResult(res)
	})
}

func addSubmitClarification(server *sdkmcp.Server, pipe *pipeline.Orchestrator) {
	type args struct {
		SessionID string `json:"session_id" jsonschema:"Stable identifier of the conversation"`
		Answer    string `json:"answer" jsonschema:"The user's answer to the pending clarifying question"`
	}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "submit_clarification",
		Description: "Answer the clarifying question asked for a session still being refined",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, a args) (*sdkmcp.CallToolResult, any, error) {
		res, err := pipe.SubmitClarification(ctx, a.SessionID, a.Answer)
		if err != nil {
			return nil, nil, err
		}
		return turnResult(res)
	})
}

func addSubmitFeedback(server *sdkmcp.Server, pipe *pipeline.Orchestrator) {
	type args struct {
		SessionID string `json:"session_id" jsonschema:"Stable identifier of the conversation"`
		Feedback  string `json:"feedback" jsonschema:"The user's reaction to the structured answer"`
	}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "submit_feedback",
		Description: "Classify the user's reaction; may return a resolution, a follow-up question, or an escalation prompt",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, a args) (*sdkmcp.CallToolResult, any, error) {
		res, err := pipe.SubmitFeedback(ctx, a.SessionID, a.Feedback)
		if err != nil {
			return nil, nil, err
		}
		return turnResult(res)
	})
}

func addConfirmTicket(server *sdkmcp.Server, pipe *pipeline.Orchestrator) {
	type args struct {
		SessionID string `json:"session_id" jsonschema:"Stable identifier of the conversation"`
		Confirmed bool   `json:"confirmed" jsonschema:"True to file the ticket, false to decline"`
	}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "confirm_ticket",
		Description: "Resolve a pending escalation by filing a support ticket or declining it",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, a args) (*sdkmcp.CallToolResult, any, error) {
		res, err := pipe.ConfirmTicket(ctx, a.SessionID, a.Confirmed)
		if err != nil {
			return nil, nil, err
		}
		return turnResult(res)
	})
}

func addListTickets(server *sdkmcp.Server, pipe *pipeline.Orchestrator) {
	type args struct{}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_tickets",
		Description: "List the support tickets filed so far",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, _ args) (*sdkmcp.CallToolResult, any, error) {
		tickets, err := pipe.Tickets().List(ctx)
		if err != nil {
			return nil, nil, err
		}
		data, err := json.Marshal(tickets)
		if err != nil {
			return nil, nil, fmt.Errorf("encode tickets: %w", err)
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		}, nil, nil
	})
}

func turnResult(res *pipeline.TurnResult) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, nil, fmt.Errorf("encode turn result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}
