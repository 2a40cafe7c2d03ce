package chat

import (
	"strings"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/domain"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/retrieval"
)

// Event types emitted while a turn executes.
const (
	EventMessage       = "message"
	EventToolStart     = "tool_start"
	EventToolResult    = "tool_result"
	EventRouter        = "router_decision"
	EventRetrievedDocs = "retrieved_docs"
)

// TurnEvent is a single observation emitted during a turn. Events are
// side-channel only and never influence control flow.
type TurnEvent struct {
	Type    string          `json:"type"`
	Message *domain.Message `json:"message,omitempty"`
	Detail  string          `json:"detail,omitempty"`
	Payload any             `json:"payload,omitempty"`
}

// Observer receives turn events as they happen. A nil observer is valid.
type Observer func(event TurnEvent)

// TraceMessage is the serialised form of a message in a developer trace.
type TraceMessage struct {
	Type     string         `json:"type"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Trace is the developer-view side channel: the exact model input, every
// intermediate message, the condensed stored state, the router outcome, and
// any retrieved documents.
type Trace struct {
	ModelInput     []TraceMessage       `json:"model_input"`
	Configuration  Config               `json:"configuration"`
	StreamEvents   []TraceMessage       `json:"stream_events,omitempty"`
	StoredState    []TraceMessage       `json:"stored_state"`
	RouterDecision string               `json:"router_decision,omitempty"`
	RouterQuery    string               `json:"router_query,omitempty"`
	RetrievedDocs  []retrieval.Document `json:"retrieved_docs,omitempty"`
}

// traceMessage serialises a message for trace payloads. Tool calls and raw
// response annotations travel in the metadata map.
func traceMessage(msg domain.Message) TraceMessage {
	metadata := make(map[string]any)
	for k, v := range msg.Metadata {
		metadata[k] = v
	}
	if len(msg.ToolCalls) > 0 {
		metadata["tool_calls"] = msg.ToolCalls
	}
	if msg.ToolCallID != "" {
		metadata["tool_call_id"] = msg.ToolCallID
	}
	return TraceMessage{
		Type:     strings.ToUpper(msg.Role),
		Content:  msg.Content,
		Metadata: domain.SafeMetadata(metadata),
	}
}

func traceMessages(msgs []domain.Message) []TraceMessage {
	out := make([]TraceMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, traceMessage(m))
	}
	return out
}
