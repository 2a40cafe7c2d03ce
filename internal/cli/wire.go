package cli

import (
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/chat"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/config"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/grading"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/llm"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/logging"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/nusmods"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/retrieval"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/tools"
)

// buildEngine wires the conversation engine from configuration: model
// clients, the vector index, the catalog tools, the session manager, and
// the grader. A missing vector index disables retrieval instead of failing
// startup.
func buildEngine(cfg config.Config, log *logging.Logger) (*chat.Manager, *grading.Grader) {
	client := llm.NewOllamaClient(cfg.Model.Endpoint)
	embedder := llm.NewOllamaEmbedder(cfg.Model.Endpoint, cfg.Model.EmbedModel)

	var index retrieval.Index
	if cfg.Chat.RetrieverOn() {
		idx, err := retrieval.OpenSQLiteIndex(cfg.Retrieval.IndexPath, embedder, log)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Retrieval.IndexPath).
				Msg("vector index unavailable, retrieval disabled")
		} else {
			index = idx
		}
	}

	catalog := nusmods.New(cfg.NUSMods.BaseURL, cfg.NUSMods.DefaultAcadYear, log)
	registry := tools.NewRegistry()
	tools.RegisterCatalogTools(registry, catalog)

	deps := chat.Deps{
		Client:      client,
		ChatModel:   cfg.Model.ChatModel,
		Temperature: cfg.Model.Temperature,
		Index:       index,
		TopK:        cfg.Retrieval.TopK,
		Tools:       registry,
		Log:         log,
	}
	sessionCfg := chat.Config{
		SystemPromptTemplate: cfg.Chat.SystemPrompt,
		ReasoningEnabled:     cfg.Chat.ReasoningEnabled,
		RetrieverEnabled:     cfg.Chat.RetrieverOn() && index != nil,
		MaxHistory:           cfg.Chat.MaxHistory,
		MaxToolIterations:    cfg.Chat.MaxToolIterations,
	}

	manager := chat.NewManager(func() *chat.Session {
		return chat.NewSession(deps, sessionCfg)
	})
	grader := grading.NewGrader(client, cfg.Model.JudgeModel, log)
	return manager, grader
}
