package provider

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type StreamChunk struct {
	Delta    string
	Thinking string // reasoning emitted by <think> models, never part of the answer
	Done     bool
	Error    error
}

// Provider is a chat-capable model backend. Both the question answering and
// grammar correction engines talk to a Provider.
type Provider interface {
	Chat(ctx context.Context, msgs []Message) (<-chan StreamChunk, error)
	Name() string
	ModelName() string
	Models(ctx context.Context) ([]string, error)
}
