package llm

import (
	"context"
)

// Turn is a single message in a chat completion request.
type Turn struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest describes one chat completion call.
// System is prepended as the system message; Turns follow in order.
type CompletionRequest struct {
	System      string
	Turns       []Turn
	MaxTokens   int
	Temperature float32
}

// Completer produces a single completion for a request. Implementations
// must not retry internally; the caller decides whether a failed step is
// retryable.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
