// Package middleware provides composable decorators for LLM clients. The
// pipeline stays unaware of them; the entrypoint wraps each provider once.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sweetpotato0/deskflow/agent"
)

// RoundTrip is one LLM invocation; middlewares wrap it like http.RoundTripper.
type RoundTrip func(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error)

// Middleware decorates a RoundTrip.
type Middleware func(next RoundTrip) RoundTrip

// Wrap layers middlewares around a client. The first middleware listed is the
// outermost. Temperature and model settings pass through to the inner client.
func Wrap(client agent.LLMClient, mws ...Middleware) agent.LLMClient {
	rt := client.Generate
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return &wrapped{inner: client, rt: rt}
}

type wrapped struct {
	inner agent.LLMClient
	rt    RoundTrip
}

func (w *wrapped) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	return w.rt(ctx, req)
}

func (w *wrapped) SetTemperature(temp float64) { w.inner.SetTemperature(temp) }
func (w *wrapped) SetModel(model string)       { w.inner.SetModel(model) }

// Logging records the duration and outcome of every model call.
func Logging(logger *slog.Logger) Middleware {
	return func(next RoundTrip) RoundTrip {
		return func(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			elapsed := time.Since(start)
			if err != nil {
				logger.Warn("model call failed", "messages", len(req.Messages), "elapsed", elapsed, "error", err)
				return nil, err
			}
			logger.Debug("model call", "messages", len(req.Messages), "elapsed", elapsed)
			return resp, nil
		}
	}
}

// RateLimit allows at most limit calls per window across all sessions.
// Exceeding calls fail fast with ErrRateLimitExceeded instead of queueing.
func RateLimit(limit int, window time.Duration) Middleware {
	var (
		mu          sync.Mutex
		count       int
		windowStart time.Time
	)
	return func(next RoundTrip) RoundTrip {
		return func(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
			mu.Lock()
			now := time.Now()
			if now.Sub(windowStart) >= window {
				windowStart = now
				count = 0
			}
			if count >= limit {
				mu.Unlock()
				return nil, fmt.Errorf("%d calls in %s: %w", limit, window, ErrRateLimitExceeded)
			}
			count++
			mu.Unlock()
			return next(ctx, req)
		}
	}
}

// MaxPromptBytes rejects requests whose combined message content exceeds the
// given size, protecting the provider from runaway prompts.
func MaxPromptBytes(max int) Middleware {
	return func(next RoundTrip) RoundTrip {
		return func(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
			total := 0
			for _, m := range req.Messages {
				total += len(m.Content)
			}
			if total > max {
				return nil, fmt.Errorf("prompt is %d bytes, limit %d: %w", total, max, ErrPromptTooLarge)
			}
			return next(ctx, req)
		}
	}
}
