// Package llm defines the provider-agnostic contract the Model Router
// (spec.md §4.2) dispatches through, grounded on the teacher's
// internal/llm/provider.go Provider interface, trimmed to the one-shot
// text/JSON-schema call shape the Agent Set actually issues: no
// multi-turn tool-calling loop, no streaming, no image generation, no
// Gemini thought-signature plumbing.
package llm

import "context"

// Message is one turn of a provider call.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ToolSchema constrains a call's response to a JSON schema, used by agents
// that need typed structured output (keyphrase, topics, sentiment,
// query_expansion) rather than free text.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Usage reports token accounting for one call, consumed by budget.Ledger.Record.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Request is one Model Router call.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// Schema, if set, asks the provider to constrain its response to the
	// given JSON schema; the result lands in Response.JSON instead of Text.
	Schema *ToolSchema
}

// Response is a provider call's result.
type Response struct {
	Text  string
	JSON  map[string]any
	Usage Usage
}

// Provider is the uniform interface every LLM backend adapter implements.
type Provider interface {
	// Name identifies the provider for logging and fallback-chain reporting.
	Name() string
	// Chat issues one call and returns its result or an error. Callers apply
	// their own per-call timeout via ctx.
	Chat(ctx context.Context, req Request) (Response, error)
}
