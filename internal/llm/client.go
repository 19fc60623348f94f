// Package llm defines the single narrow operation the query pipeline needs
// from a language model (spec §6), plus a Bedrock-backed implementation.
package llm

import "context"

// CallOptions configures a single LLM invocation.
type CallOptions struct {
	SystemPrompt string
	MaxTokens    int
	ExpectJSON   bool
}

// Client is the external interface spec §6 requires: a single opaque
// call_llm(prompt, system_prompt?, max_tokens, context) -> string operation.
// All parsing of the response happens in the core (internal/textsql), never
// here.
type Client interface {
	Call(ctx context.Context, prompt string, opts CallOptions) (string, error)
}
