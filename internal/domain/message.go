// Package domain holds the conversation data model shared across the engine.
package domain

import (
	"encoding/json"
	"fmt"
)

// Role constants for conversation messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// ToolCall is an assistant request to invoke a named tool. The ID pairs the
// call with the tool-result message produced for it.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Message is a single typed conversation turn. The Role tag replaces the
// class-based dispatch of the original design: callers switch on Role
// explicitly instead of inspecting message shapes.
type Message struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ToolCalls  []ToolCall     `json:"toolCalls,omitempty"`
	ToolCallID string         `json:"toolCallId,omitempty"`
}

// Clone returns a deep copy. Context injection rewrites the copy so the
// stored history is never mutated.
func (m Message) Clone() Message {
	out := m
	if m.Metadata != nil {
		out.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		copy(out.ToolCalls, m.ToolCalls)
	}
	return out
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// SafeMetadata coerces metadata values into JSON-serialisable primitives.
// Values that cannot be marshalled are replaced with their string form so a
// trace payload never fails to encode.
func SafeMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	safe := make(map[string]any, len(metadata))
	for key, value := range metadata {
		if _, err := json.Marshal(value); err != nil {
			safe[key] = toString(value)
			continue
		}
		safe[key] = value
	}
	return safe
}

func toString(v any) string {
	return fmt.Sprintf("%v", v)
}
