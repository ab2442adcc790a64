// Package llm wraps the external generation model behind a small client
// interface.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Client generates a completion for an ordered list of messages.
type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}
