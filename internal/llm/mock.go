package llm

import "context"

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	ChatFunc     func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Calls        int
}

func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	m.Calls++
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	return &ChatResponse{Message: Message{Role: RoleAssistant, Content: "mock response"}}, nil
}

// MockEmbedder is a test double for Embedder.
type MockEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
	Calls     int
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Calls++
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return []float32{0, 0, 0}, nil
}
