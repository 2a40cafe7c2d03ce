package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaChatRequestShape(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   "qwen3:14b",
			Message: ollamaMessage{Role: RoleAssistant, Content: "reply"},
			Done:    true,
		})
	}))
	defer srv.Close()

	temp := 0.2
	client := NewOllamaClient(srv.URL)
	resp, err := client.Chat(context.Background(), ChatRequest{
		Model: "qwen3:14b",
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "question"},
			{Role: RoleTool, Content: `{"ok":true}`, ToolName: "module_overview"},
		},
		Tools: []ToolDefinition{
			{Name: "module_overview", Description: "desc", Parameters: map[string]any{"type": "object"}},
		},
		Temperature: &temp,
		Think:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "reply", resp.Message.Content)
	assert.Equal(t, "qwen3:14b", resp.Model)

	assert.False(t, got.Stream)
	assert.True(t, got.Think)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "module_overview", got.Messages[2].ToolName)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "function", got.Tools[0].Type)
	assert.Equal(t, "module_overview", got.Tools[0].Function.Name)
	assert.Equal(t, 0.2, got.Options["temperature"])
}

func TestOllamaChatAssignsToolCallIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{
				Role: RoleAssistant,
				ToolCalls: []ollamaToolCall{
					{Function: ollamaFunctionCall{Name: "module_overview", Arguments: map[string]any{"module_code": "DSA1101"}}},
					{Function: ollamaFunctionCall{Name: "module_search", Arguments: map[string]any{"query": "data"}}},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL)
	resp, err := client.Chat(context.Background(), ChatRequest{Model: "qwen3:14b"})
	require.NoError(t, err)

	require.Len(t, resp.Message.ToolCalls, 2)
	assert.NotEmpty(t, resp.Message.ToolCalls[0].ID)
	assert.NotEmpty(t, resp.Message.ToolCalls[1].ID)
	assert.NotEqual(t, resp.Message.ToolCalls[0].ID, resp.Message.ToolCalls[1].ID)
	assert.Equal(t, "module_overview", resp.Message.ToolCalls[0].Name)
}

func TestOllamaChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL)
	_, err := client.Chat(context.Background(), ChatRequest{Model: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mxbai-embed-large", req["model"])
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2, 0.3}},
		})
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(srv.URL, "mxbai-embed-large")
	vec, err := embedder.Embed(context.Background(), "curriculum text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOllamaEmbedNoVectors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{}})
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(srv.URL, "mxbai-embed-large")
	_, err := embedder.Embed(context.Background(), "text")
	require.Error(t, err)
}
