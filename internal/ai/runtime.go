package ai

import "context"

// Runtime is implemented by every AI backend (OpenRouter, Gemini, Ollama).
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers accepted by the provider config key.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderNone       = "none"
)
