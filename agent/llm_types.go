package agent

import (
	"context"

	"github.com/sweetpotato0/deskflow/message"
)

// GenerateRequest bundles inputs for a non-streaming LLM invocation.
type GenerateRequest struct {
	Messages []*message.Message
}

// GenerateResponse captures the LLM reply for non-streaming calls.
type GenerateResponse struct {
	Message *message.Message
}

// LLMClient defines the interface for reasoning providers. Implementations
// must be safe for concurrent use by multiple sessions; the orchestrator
// bounds every call with a deadline and treats context errors as timeouts.
type LLMClient interface {
	// Generate generates a response from the LLM.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// SetTemperature updates the temperature setting for generation.
	SetTemperature(temp float64)

	// SetModel updates the model to use for generation.
	SetModel(model string)
}
