package ai

import (
	"context"
	"errors"
)

// ErrAdapterUnavailable is returned when no API key is configured. Stage
// runners surface it as a generation failure.
var ErrAdapterUnavailable = errors.New("generation adapter unavailable")

type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// GenerateRequest is one text generation call. Stage labels the caller for
// metrics and logs; Instructions carry the system prompt, Input the user
// prompt.
type GenerateRequest struct {
	Stage           string
	Instructions    string
	Input           string
	Temperature     float64
	MaxOutputTokens int
}

type GenerateResult struct {
	Text    string
	ModelID string
	Usage   TokenUsage
}

// Generator abstracts the model provider so stage runners and tests don't
// depend on HTTP.
type Generator interface {
	Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error)
	Available() bool
}
