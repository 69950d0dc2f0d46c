package llm

import "context"

// Request is a single text-generation request.
type Request struct {
	Model        string
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float64
}

// Response is the provider's generated text plus usage metadata.
type Response struct {
	Content      string
	Model        string
	TokensInput  int
	TokensOutput int
	FinishReason string
}

// Provider is the interface for LLM providers.
// Implementations include Anthropic, OpenAI, Ollama.
type Provider interface {
	// Name returns the provider identifier (e.g., "anthropic").
	Name() string

	// Generate sends a prompt and returns the generated text.
	Generate(ctx context.Context, req Request) (*Response, error)
}
