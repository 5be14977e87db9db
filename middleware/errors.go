package middleware

import "errors"

var (
	// ErrRateLimitExceeded indicates the per-window call budget is spent.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrPromptTooLarge indicates the rendered prompt exceeds the size cap.
	ErrPromptTooLarge = errors.New("prompt too large")
)
