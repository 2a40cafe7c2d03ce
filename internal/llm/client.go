// Package llm defines the chat-model client interface and the Ollama
// implementations used by the advising engine. The engine depends only on
// the interfaces here; providers are injected at wiring time.
package llm

import "context"

// Role constants for model messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message is a single turn sent to or received from the model.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolName identifies which tool produced a role=tool message.
	ToolName string `json:"tool_name,omitempty"`
}

// ToolCall is a model request to invoke a tool. Ollama does not assign call
// identifiers, so the client generates one per call.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolDefinition describes a tool the model may invoke. Parameters is a
// JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatRequest is the input to a Chat call.
type ChatRequest struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	// Think enables the model's reasoning mode where supported.
	Think bool `json:"think,omitempty"`
}

// ChatResponse is the result of a completion.
type ChatResponse struct {
	Message Message `json:"message"`
	Model   string  `json:"model,omitempty"`
}

// Client is the interface all chat-model providers implement.
type Client interface {
	// Chat sends a request and returns the model's reply.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Name returns the provider name (e.g., "ollama").
	Name() string
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
