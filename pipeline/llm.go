package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sweetpotato0/deskflow/agent"
	deskerrors "github.com/sweetpotato0/deskflow/errors"
	"github.com/sweetpotato0/deskflow/message"
)

// callModel runs one bounded model call and classifies provider failures.
// Every agent in the pipeline goes through here so no call can hang past the
// configured deadline.
func callModel(ctx context.Context, llm agent.LLMClient, timeout time.Duration, msgs []*message.Message) (string, error) {
	if llm == nil {
		return "", fmt.Errorf("%w: model client not configured", deskerrors.ErrProviderUnavailable)
	}

	cctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := llm.Generate(cctx, &agent.GenerateRequest{Messages: msgs})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", deskerrors.ErrProviderTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", deskerrors.ErrProviderUnavailable, err)
	}
	if resp == nil || resp.Message == nil || strings.TrimSpace(resp.Message.Text()) == "" {
		return "", fmt.Errorf("%w: empty model response", deskerrors.ErrProviderUnavailable)
	}
	return resp.Message.Text(), nil
}
