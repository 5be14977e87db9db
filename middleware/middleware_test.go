package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sweetpotato0/deskflow/agent"
	"github.com/sweetpotato0/deskflow/message"
)

type fakeClient struct {
	calls       int
	temperature float64
	model       string
}

func (f *fakeClient) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	f.calls++
	return &agent.GenerateResponse{Message: message.NewMessage(message.RoleAssistant, "ok")}, nil
}

func (f *fakeClient) SetTemperature(temp float64) { f.temperature = temp }
func (f *fakeClient) SetModel(model string)       { f.model = model }

func request(content string) *agent.GenerateRequest {
	return &agent.GenerateRequest{Messages: []*message.Message{
		message.NewMessage(message.RoleUser, content),
	}}
}

func TestWrapDelegatesSettings(t *testing.T) {
	inner := &fakeClient{}
	client := Wrap(inner, Logging(slog.New(slog.NewTextHandler(io.Discard, nil))))

	client.SetTemperature(0.3)
	client.SetModel("gpt-4o-mini")
	if inner.temperature != 0.3 || inner.model != "gpt-4o-mini" {
		t.Fatalf("settings not delegated: %+v", inner)
	}

	if _, err := client.Generate(context.Background(), request("hi")); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.calls)
	}
}

func TestRateLimitFailsFast(t *testing.T) {
	inner := &fakeClient{}
	client := Wrap(inner, RateLimit(2, time.Hour))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := client.Generate(ctx, request("hi")); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if _, err := client.Generate(ctx, request("hi")); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("rejected call reached the provider, calls=%d", inner.calls)
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	inner := &fakeClient{}
	client := Wrap(inner, RateLimit(1, 10*time.Millisecond))

	ctx := context.Background()
	if _, err := client.Generate(ctx, request("hi")); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := client.Generate(ctx, request("hi")); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	time.Sleep(15 * time.Millisecond)
	if _, err := client.Generate(ctx, request("hi")); err != nil {
		t.Fatalf("call after window reset: %v", err)
	}
}

func TestMaxPromptBytes(t *testing.T) {
	inner := &fakeClient{}
	client := Wrap(inner, MaxPromptBytes(10))

	if _, err := client.Generate(context.Background(), request("short")); err != nil {
		t.Fatalf("small prompt rejected: %v", err)
	}
	_, err := client.Generate(context.Background(), request("this prompt is far beyond the limit"))
	if !errors.Is(err, ErrPromptTooLarge) {
		t.Fatalf("expected ErrPromptTooLarge, got %v", err)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	inner := &fakeClient{}
	var order []string
	tag := func(name string) Middleware {
		return func(next RoundTrip) RoundTrip {
			return func(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	client := Wrap(inner, tag("outer"), tag("inner"))
	if _, err := client.Generate(context.Background(), request("hi")); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("unexpected order %v", order)
	}
}
