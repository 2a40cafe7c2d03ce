// Package config loads and validates the advisor configuration.
package config

// Config is the root configuration for the advisor service.
type Config struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Model     ModelConfig     `yaml:"model,omitempty"`
	Chat      ChatConfig      `yaml:"chat,omitempty"`
	Retrieval RetrievalConfig `yaml:"retrieval,omitempty"`
	NUSMods   NUSModsConfig   `yaml:"nusmods,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Port int    `yaml:"port,omitempty"`
	Bind string `yaml:"bind,omitempty"`
}

// ModelConfig selects the Ollama endpoint and model bindings.
type ModelConfig struct {
	Endpoint    string   `yaml:"endpoint,omitempty"`
	ChatModel   string   `yaml:"chatModel,omitempty"`
	JudgeModel  string   `yaml:"judgeModel,omitempty"`
	EmbedModel  string   `yaml:"embedModel,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// ChatConfig holds the conversation engine defaults.
type ChatConfig struct {
	SystemPrompt      string `yaml:"systemPrompt,omitempty"`
	MaxHistory        int    `yaml:"maxHistory,omitempty"`
	MaxToolIterations int    `yaml:"maxToolIterations,omitempty"`
	ReasoningEnabled  bool   `yaml:"reasoningEnabled,omitempty"`
	RetrieverEnabled  *bool  `yaml:"retrieverEnabled,omitempty"`
}

// RetrievalConfig points at the curriculum vector index.
type RetrievalConfig struct {
	IndexPath string `yaml:"indexPath,omitempty"`
	TopK      int    `yaml:"topK,omitempty"`
}

// NUSModsConfig controls the course catalog client.
type NUSModsConfig struct {
	BaseURL         string `yaml:"baseUrl,omitempty"`
	DefaultAcadYear string `yaml:"defaultAcadYear,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}

// RetrieverOn reports the retrieval toggle, defaulting to on when unset.
func (c ChatConfig) RetrieverOn() bool {
	return c.RetrieverEnabled == nil || *c.RetrieverEnabled
}

// Defaults returns the baseline configuration before file and env overrides.
func Defaults() Config {
	return Config{
		Server: ServerConfig{Port: 8080, Bind: "127.0.0.1"},
		Model: ModelConfig{
			Endpoint:   "http://localhost:11434",
			ChatModel:  "qwen3:14b",
			JudgeModel: "qwen3:14b",
			EmbedModel: "mxbai-embed-large",
		},
		Chat: ChatConfig{
			MaxHistory:        5,
			MaxToolIterations: 8,
		},
		Retrieval: RetrievalConfig{
			IndexPath: "curriculum_vectors.db",
			TopK:      4,
		},
		NUSMods: NUSModsConfig{
			BaseURL:         "https://api.nusmods.com/v2",
			DefaultAcadYear: "2025-2026",
		},
		Logging: LoggingConfig{Level: "info", Style: "pretty"},
	}
}
