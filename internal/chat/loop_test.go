package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/domain"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/llm"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/tools"
)

type fakeTool struct {
	name  string
	delay time.Duration
	fn    func(ctx context.Context, args map[string]any) (any, error)
}

func (f *fakeTool) Name() string               { return f.name }
func (f *fakeTool) Description() string        { return "test tool" }
func (f *fakeTool) Parameters() map[string]any { return map[string]any{"type": "object"} }

func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fn != nil {
		return f.fn(ctx, args)
	}
	return map[string]any{"tool": f.name}, nil
}

func newTestRegistry(ts ...tools.Tool) *tools.Registry {
	reg := tools.NewRegistry()
	for _, t := range ts {
		reg.Register(t)
	}
	return reg
}

func TestLoopDirectAnswer(t *testing.T) {
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "DSA1101 is Introduction to Data Science."}}, nil
		},
	}
	loop := NewLoop(client, "qwen3:14b", nil, false, newTestRegistry(), 8, testLogger())

	history := []domain.Message{domain.User("What is DSA1101?")}
	final, err := loop.Run(context.Background(), "system prompt", history, "", nil)
	require.NoError(t, err)
	require.Len(t, final, 2)
	assert.Equal(t, domain.RoleUser, final[0].Role)
	assert.Equal(t, domain.RoleAssistant, final[1].Role)
	assert.Equal(t, "DSA1101 is Introduction to Data Science.", final[1].Content)
	assert.Equal(t, 1, client.Calls)
}

func TestLoopSystemPromptFirst(t *testing.T) {
	var input []llm.Message
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			input = req.Messages
			return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "ok"}}, nil
		},
	}
	loop := NewLoop(client, "qwen3:14b", nil, false, newTestRegistry(), 8, testLogger())

	_, err := loop.Run(context.Background(), "be helpful", []domain.Message{domain.User("hi")}, "", nil)
	require.NoError(t, err)
	require.Len(t, input, 2)
	assert.Equal(t, llm.RoleSystem, input[0].Role)
	assert.Equal(t, "be helpful", input[0].Content)
}

func TestLoopContextAugmentsLastUserMessageOnly(t *testing.T) {
	var inputs [][]llm.Message
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			inputs = append(inputs, req.Messages)
			if len(inputs) == 1 {
				return &llm.ChatResponse{Message: llm.Message{
					Role:      llm.RoleAssistant,
					ToolCalls: []llm.ToolCall{{ID: "c1", Name: "lookup", Arguments: map[string]any{}}},
				}}, nil
			}
			return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "done"}}, nil
		},
	}
	loop := NewLoop(client, "qwen3:14b", nil, false, newTestRegistry(&fakeTool{name: "lookup"}), 8, testLogger())

	history := []domain.Message{
		domain.User("earlier question"),
		domain.Assistant("earlier answer"),
		domain.User("What are the CHS requirements?"),
	}
	final, err := loop.Run(context.Background(), "sys", history, "CHS common curriculum overview", nil)
	require.NoError(t, err)

	// first call: the latest user message carries the context block
	first := inputs[0]
	assert.Equal(t, "earlier question", first[1].Content)
	assert.Equal(t, "Context:\nCHS common curriculum overview\n\nUser: What are the CHS requirements?", first[3].Content)

	// second call: tool results follow the user message, so no augmentation
	second := inputs[1]
	for _, m := range second {
		assert.NotContains(t, m.Content, "Context:\nCHS")
	}

	// the returned history keeps the unaugmented user text
	assert.Equal(t, "What are the CHS requirements?", final[2].Content)
}

func TestLoopExecutesToolCallsInOrder(t *testing.T) {
	var secondInput []llm.Message
	calls := 0
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			calls++
			if calls == 1 {
				return &llm.ChatResponse{Message: llm.Message{
					Role: llm.RoleAssistant,
					ToolCalls: []llm.ToolCall{
						{ID: "c1", Name: "slow", Arguments: map[string]any{}},
						{ID: "c2", Name: "fast", Arguments: map[string]any{}},
					},
				}}, nil
			}
			secondInput = req.Messages
			return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "combined answer"}}, nil
		},
	}
	reg := newTestRegistry(
		&fakeTool{name: "slow", delay: 30 * time.Millisecond},
		&fakeTool{name: "fast"},
	)
	loop := NewLoop(client, "qwen3:14b", nil, false, reg, 8, testLogger())

	final, err := loop.Run(context.Background(), "sys", []domain.Message{domain.User("compare two modules")}, "", nil)
	require.NoError(t, err)

	// user, assistant(tool calls), two tool results, final assistant
	require.Len(t, final, 5)
	assert.Equal(t, domain.RoleTool, final[2].Role)
	assert.Equal(t, "c1", final[2].ToolCallID)
	assert.Contains(t, final[2].Content, "slow")
	assert.Equal(t, domain.RoleTool, final[3].Role)
	assert.Equal(t, "c2", final[3].ToolCallID)
	assert.Contains(t, final[3].Content, "fast")
	assert.Equal(t, "combined answer", final[4].Content)

	// both results were in the second model input, still in call order
	var toolMsgs []llm.Message
	for _, m := range secondInput {
		if m.Role == domain.RoleTool {
			toolMsgs = append(toolMsgs, m)
		}
	}
	require.Len(t, toolMsgs, 2)
	assert.Equal(t, "slow", toolMsgs[0].ToolName)
	assert.Equal(t, "fast", toolMsgs[1].ToolName)
}

func TestLoopToolErrorBecomesResult(t *testing.T) {
	calls := 0
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			calls++
			if calls == 1 {
				return &llm.ChatResponse{Message: llm.Message{
					Role:      llm.RoleAssistant,
					ToolCalls: []llm.ToolCall{{ID: "c1", Name: "broken", Arguments: map[string]any{}}},
				}}, nil
			}
			return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "sorry, that lookup failed"}}, nil
		},
	}
	broken := &fakeTool{name: "broken", fn: func(ctx context.Context, args map[string]any) (any, error) {
		return nil, errors.New("module not found")
	}}
	loop := NewLoop(client, "qwen3:14b", nil, false, newTestRegistry(broken), 8, testLogger())

	final, err := loop.Run(context.Background(), "sys", []domain.Message{domain.User("q")}, "", nil)
	require.NoError(t, err)
	require.Len(t, final, 4)
	assert.Equal(t, "Error: module not found", final[2].Content)
}

func TestLoopUnknownTool(t *testing.T) {
	calls := 0
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			calls++
			if calls == 1 {
				return &llm.ChatResponse{Message: llm.Message{
					Role:      llm.RoleAssistant,
					ToolCalls: []llm.ToolCall{{ID: "c1", Name: "ghost", Arguments: map[string]any{}}},
				}}, nil
			}
			return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "answer"}}, nil
		},
	}
	loop := NewLoop(client, "qwen3:14b", nil, false, newTestRegistry(), 8, testLogger())

	final, err := loop.Run(context.Background(), "sys", []domain.Message{domain.User("q")}, "", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(final[2].Content, "Error: unknown tool"))
}

func TestLoopIterationCeiling(t *testing.T) {
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Message: llm.Message{
				Role:      llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{{ID: "c", Name: "echo", Arguments: map[string]any{}}},
			}}, nil
		},
	}
	loop := NewLoop(client, "qwen3:14b", nil, false, newTestRegistry(&fakeTool{name: "echo"}), 3, testLogger())

	_, err := loop.Run(context.Background(), "sys", []domain.Message{domain.User("q")}, "", nil)
	require.ErrorIs(t, err, ErrToolLoopExceeded)
	assert.Equal(t, 3, client.Calls)
}

func TestLoopObserverSeesToolEvents(t *testing.T) {
	calls := 0
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			calls++
			if calls == 1 {
				return &llm.ChatResponse{Message: llm.Message{
					Role:      llm.RoleAssistant,
					ToolCalls: []llm.ToolCall{{ID: "c1", Name: "lookup", Arguments: map[string]any{}}},
				}}, nil
			}
			return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "answer"}}, nil
		},
	}
	loop := NewLoop(client, "qwen3:14b", nil, false, newTestRegistry(&fakeTool{name: "lookup"}), 8, testLogger())

	var events []string
	obs := func(event TurnEvent) { events = append(events, event.Type) }
	_, err := loop.Run(context.Background(), "sys", []domain.Message{domain.User("q")}, "", obs)
	require.NoError(t, err)
	assert.Equal(t, []string{EventMessage, EventToolStart, EventToolResult, EventMessage}, events)
}
