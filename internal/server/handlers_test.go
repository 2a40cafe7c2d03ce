package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/chat"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/config"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/grading"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/llm"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/logging"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/tools"
)

func newTestServer(t *testing.T, client llm.Client) *Server {
	t.Helper()
	log := logging.New(io.Discard, "silent", "json")
	deps := chat.Deps{
		Client:    client,
		ChatModel: "qwen3:14b",
		Tools:     tools.NewRegistry(),
		Log:       log,
	}
	manager := chat.NewManager(func() *chat.Session {
		return chat.NewSession(deps, chat.Config{})
	})
	grader := grading.NewGrader(client, "qwen3:14b", log)
	return New(config.ServerConfig{Port: 0, Bind: "127.0.0.1"}, manager, grader, log)
}

func doJSON(t *testing.T, s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echoContentType, echoJSONType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

const (
	echoContentType = "Content-Type"
	echoJSONType    = "application/json"
)

func TestHealth(t *testing.T) {
	s := newTestServer(t, &llm.MockClient{})
	rec := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestChatEndpoint(t *testing.T) {
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "DSA1101 covers data science basics."}}, nil
		},
	}
	s := newTestServer(t, client)

	rec := doJSON(t, s, http.MethodPost, "/api/chat", `{"prompt": "What is DSA1101?"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chat.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "DSA1101 covers data science basics.", resp.Answer)
	require.Len(t, resp.History, 2)
	assert.Nil(t, resp.Trace)
}

func TestChatEmptyPrompt(t *testing.T) {
	s := newTestServer(t, &llm.MockClient{})
	rec := doJSON(t, s, http.MethodPost, "/api/chat", `{"prompt": "   "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "prompt is required")
}

func TestChatModelFailure(t *testing.T) {
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return nil, errors.New("model unavailable")
		},
	}
	s := newTestServer(t, client)
	rec := doJSON(t, s, http.MethodPost, "/api/chat", `{"prompt": "question"}`, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChatSessionHeaderIsolation(t *testing.T) {
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "answer"}}, nil
		},
	}
	s := newTestServer(t, client)

	rec := doJSON(t, s, http.MethodPost, "/api/chat", `{"prompt": "alice q"}`, map[string]string{"X-Session-ID": "alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/chat", `{"prompt": "bob q"}`, map[string]string{"X-Session-ID": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chat.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.History, 2)
	assert.Equal(t, "bob q", resp.History[0].Content)
}

func TestResetEndpoint(t *testing.T) {
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "answer"}}, nil
		},
	}
	s := newTestServer(t, client)

	doJSON(t, s, http.MethodPost, "/api/chat", `{"prompt": "first"}`, nil)
	rec := doJSON(t, s, http.MethodPost, "/api/reset", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/chat", `{"prompt": "second"}`, nil)
	var resp chat.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.History, 2)
	assert.Equal(t, "second", resp.History[0].Content)
}

func TestConfigureEndpoint(t *testing.T) {
	s := newTestServer(t, &llm.MockClient{})

	rec := doJSON(t, s, http.MethodPost, "/api/config", `{"reasoning_enabled": true}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status        string      `json:"status"`
		Configuration chat.Config `json:"configuration"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Configuration.ReasoningEnabled)
}

func TestEvaluateEndpoint(t *testing.T) {
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "answer"}}, nil
		},
	}
	s := newTestServer(t, client)

	rec := doJSON(t, s, http.MethodPost, "/api/evaluate", `{"prompts": ["", "What is DSA1101?"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Results []chat.EvalResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "What is DSA1101?", resp.Results[0].Prompt)
}

func TestGradeEndpoint(t *testing.T) {
	client := &llm.MockClient{
		ChatFunc: func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Message: llm.Message{
				Role:    llm.RoleAssistant,
				Content: `{"accuracy": 0.8, "relevance": 1.0, "coherence": 0.9}`,
			}}, nil
		},
	}
	s := newTestServer(t, client)

	rec := doJSON(t, s, http.MethodPost, "/api/grade", `{"question": "q", "ground_truth": "t", "answer": "a"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result grading.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.InDelta(t, 2.7, result.Total, 1e-9)
}

func TestGradeEndpointRejectsEmptyQuestion(t *testing.T) {
	s := newTestServer(t, &llm.MockClient{})
	rec := doJSON(t, s, http.MethodPost, "/api/grade", `{"question": "", "answer": "a"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
