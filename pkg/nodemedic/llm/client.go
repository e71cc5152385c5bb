// Package llm provides chat completion clients for the supported model
// backends. All clients implement the same small interface so callers
// never care which backend a session is configured with.
package llm

import "context"

// Role identifies who authored a message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Client is a chat completion backend.
//
// Stream invokes onDelta for each content fragment as it arrives and
// returns the full accumulated response. Backends without native
// streaming support deliver the complete response as a single delta.
type Client interface {
	Complete(ctx context.Context, msgs []Message) (string, error)
	Stream(ctx context.Context, msgs []Message, onDelta func(string)) (string, error)
}
