package graph

import (
	"context"
	"strings"
	"testing"
)

func passthrough(ctx context.Context, state State) (State, error) {
	return state, nil
}

func TestSequentialExecution(t *testing.T) {
	var order []string
	record := func(name string) NodeFunc {
		return func(ctx context.Context, state State) (State, error) {
			order = append(order, name)
			return state, nil
		}
	}

	g := NewBuilder().
		AddNode("start", NodeTypeStart, record("start")).
		AddNode("middle", NodeTypeAgent, record("middle")).
		AddNode("end", NodeTypeEnd, record("end")).
		AddEdge("start", "middle").
		AddEdge("middle", "end").
		SetStart("start").
		Build()

	if _, err := g.Execute(context.Background(), nil); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if got := strings.Join(order, ","); got != "start,middle,end" {
		t.Fatalf("unexpected order %q", got)
	}
}

func TestConditionBranching(t *testing.T) {
	g := NewBuilder().
		AddNode("start", NodeTypeStart, passthrough).
		AddConditionNode("route", func(ctx context.Context, state State) (string, error) {
			if state["flag"] == true {
				return "yes", nil
			}
			return "no", nil
		}, map[string]string{"yes": "hit", "no": "end"}).
		AddNode("hit", NodeTypeAgent, func(ctx context.Context, state State) (State, error) {
			state["visited"] = true
			return state, nil
		}).
		AddNode("end", NodeTypeEnd, passthrough).
		AddEdge("start", "route").
		AddEdge("hit", "end").
		SetStart("start").
		Build()

	out, err := g.Execute(context.Background(), State{"flag": true})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out["visited"] != true {
		t.Fatal("expected branch node to run")
	}

	out, err = g.Execute(context.Background(), State{"flag": false})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if _, ok := out["visited"]; ok {
		t.Fatal("branch node should have been skipped")
	}
}

func TestUnknownBranchLabelFails(t *testing.T) {
	g := NewBuilder().
		AddNode("start", NodeTypeStart, passthrough).
		AddConditionNode("route", func(ctx context.Context, state State) (string, error) {
			return "nowhere", nil
		}, map[string]string{"somewhere": "end"}).
		AddNode("end", NodeTypeEnd, passthrough).
		AddEdge("start", "route").
		SetStart("start").
		Build()

	if _, err := g.Execute(context.Background(), nil); err == nil {
		t.Fatal("expected error for unmapped branch label")
	}
}

func TestLoopGuard(t *testing.T) {
	g := NewBuilder().
		AddNode("start", NodeTypeStart, passthrough).
		AddNode("spin", NodeTypeAgent, passthrough).
		AddConditionNode("again", func(ctx context.Context, state State) (string, error) {
			return "loop", nil
		}, map[string]string{"loop": "spin"}).
		AddEdge("start", "spin").
		AddEdge("spin", "again").
		SetStart("start").
		SetMaxVisits(3).
		Build()

	_, err := g.Execute(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "infinite loop") {
		t.Fatalf("expected loop guard error, got %v", err)
	}
}

func TestBoundedLoopTerminates(t *testing.T) {
	g := NewBuilder().
		AddNode("start", NodeTypeStart, passthrough).
		AddNode("work", NodeTypeAgent, func(ctx context.Context, state State) (State, error) {
			n, _ := state["n"].(int)
			state["n"] = n + 1
			return state, nil
		}).
		AddConditionNode("check", func(ctx context.Context, state State) (string, error) {
			if state["n"].(int) < 2 {
				return "retry", nil
			}
			return "done", nil
		}, map[string]string{"retry": "work", "done": "end"}).
		AddNode("end", NodeTypeEnd, passthrough).
		AddEdge("start", "work").
		AddEdge("work", "check").
		SetStart("start").
		Build()

	out, err := g.Execute(context.Background(), State{"n": 0})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out["n"] != 2 {
		t.Fatalf("expected two iterations, got %v", out["n"])
	}
}

func TestCancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewBuilder().
		AddNode("start", NodeTypeStart, passthrough).
		AddNode("end", NodeTypeEnd, passthrough).
		AddEdge("start", "end").
		SetStart("start").
		Build()

	if _, err := g.Execute(ctx, nil); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
