// Package genai is the boundary to the external text-completion
// capability. The service gives no guarantee of schema-conformant
// output: callers must treat Response.Content as untrusted text and run
// their own extraction and validation over it.
//
// Timeouts, transport failures and undecodable responses are all plain
// errors; the pipeline routes every one of them into the same
// repair/fallback path, so no separate error classes exist here.
package genai

import "context"

// Request is one completion request.
type Request struct {
	Prompt       string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// Response is the raw completion.
type Response struct {
	Content    string
	Model      string
	TokensUsed int
}

// Client issues completion requests. Implementations must honour
// context cancellation and apply their own request timeout.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
