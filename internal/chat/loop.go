package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/domain"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/llm"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/logging"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/tools"
)

// Loop drives the model until it produces a final answer, executing any
// tool calls it requests along the way.
type Loop struct {
	client        llm.Client
	model         string
	temperature   *float64
	think         bool
	tools         *tools.Registry
	maxIterations int
	log           *logging.Logger
}

// NewLoop creates a tool-calling loop. maxIterations bounds pathological
// tool-call cycles; values below 1 default to 8.
func NewLoop(client llm.Client, model string, temperature *float64, think bool, registry *tools.Registry, maxIterations int, log *logging.Logger) *Loop {
	if maxIterations < 1 {
		maxIterations = 8
	}
	return &Loop{
		client:        client,
		model:         model,
		temperature:   temperature,
		think:         think,
		tools:         registry,
		maxIterations: maxIterations,
		log:           log.Sub("chat.loop"),
	}
}

// Run executes the loop over the given history and returns the full message
// sequence including every assistant and tool-result message produced this
// turn. When contextBlock is non-empty, the final user message is rewritten
// on a copy before each model call; the returned history keeps the original
// user text.
func (l *Loop) Run(ctx context.Context, systemPrompt string, history []domain.Message, contextBlock string, obs Observer) ([]domain.Message, error) {
	msgs := make([]domain.Message, len(history))
	for i, m := range history {
		msgs[i] = m.Clone()
	}

	for i := 0; i < l.maxIterations; i++ {
		input := l.buildModelInput(systemPrompt, msgs, contextBlock)

		resp, err := l.client.Chat(ctx, llm.ChatRequest{
			Model:       l.model,
			Messages:    input,
			Tools:       l.tools.Definitions(),
			Temperature: l.temperature,
			Think:       l.think,
		})
		if err != nil {
			return nil, fmt.Errorf("model invocation: %w", err)
		}

		assistant := domain.Message{
			Role:    domain.RoleAssistant,
			Content: resp.Message.Content,
		}
		for _, tc := range resp.Message.ToolCalls {
			assistant.ToolCalls = append(assistant.ToolCalls, domain.ToolCall{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: tc.Arguments,
			})
		}
		msgs = append(msgs, assistant)
		emit(obs, TurnEvent{Type: EventMessage, Message: &assistant})

		if len(assistant.ToolCalls) == 0 {
			return msgs, nil
		}

		l.log.Info().Int("toolCalls", len(assistant.ToolCalls)).Msg("executing tool calls")
		results := l.executeToolCalls(ctx, assistant.ToolCalls, obs)
		msgs = append(msgs, results...)
	}

	return nil, ErrToolLoopExceeded
}

// buildModelInput converts history into model messages with the system
// prompt first. The context block is folded into the latest message only
// while it is still the user's turn; once tool results follow it, the
// augmentation no longer applies.
func (l *Loop) buildModelInput(systemPrompt string, msgs []domain.Message, contextBlock string) []llm.Message {
	input := make([]llm.Message, 0, len(msgs)+1)
	input = append(input, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})

	last := len(msgs) - 1
	for i, m := range msgs {
		lm := llm.Message{Role: m.Role, Content: m.Content}
		if m.Role == domain.RoleTool {
			if name, ok := m.Metadata["tool_name"].(string); ok {
				lm.ToolName = name
			}
		}
		for _, tc := range m.ToolCalls {
			lm.ToolCalls = append(lm.ToolCalls, llm.ToolCall{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: tc.Arguments,
			})
		}
		if i == last && m.Role == domain.RoleUser && contextBlock != "" {
			lm.Content = fmt.Sprintf("Context:\n%s\n\nUser: %s", contextBlock, m.Content)
		}
		input = append(input, lm)
	}
	return input
}

// executeToolCalls runs the requested tools concurrently and returns one
// tool-result message per call, in the order the calls were requested.
// A failing tool produces a result carrying the error description so the
// model can decide how to respond.
func (l *Loop) executeToolCalls(ctx context.Context, calls []domain.ToolCall, obs Observer) []domain.Message {
	results := make([]domain.Message, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		emit(obs, TurnEvent{Type: EventToolStart, Detail: call.Name})

		wg.Add(1)
		go func(i int, call domain.ToolCall) {
			defer wg.Done()
			results[i] = l.runTool(ctx, call)
		}(i, call)
	}
	wg.Wait()

	for i := range results {
		emit(obs, TurnEvent{Type: EventToolResult, Message: &results[i]})
	}
	return results
}

func (l *Loop) runTool(ctx context.Context, call domain.ToolCall) domain.Message {
	msg := domain.Message{
		Role:       domain.RoleTool,
		ToolCallID: call.ID,
		Metadata:   map[string]any{"tool_name": call.Name},
	}

	tool, ok := l.tools.Get(call.Name)
	if !ok {
		msg.Content = fmt.Sprintf("Error: unknown tool %q", call.Name)
		return msg
	}

	l.log.Debug().Str("tool", call.Name).Msg("executing tool")
	output, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		msg.Content = fmt.Sprintf("Error: %v", err)
		return msg
	}

	encoded, err := json.Marshal(output)
	if err != nil {
		msg.Content = fmt.Sprintf("Error: encoding tool result: %v", err)
		return msg
	}
	msg.Content = string(encoded)
	return msg
}

func emit(obs Observer, event TurnEvent) {
	if obs != nil {
		obs(event)
	}
}
