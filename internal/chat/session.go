// Package chat implements the conversation orchestration engine: per turn
// it sequences the router, the retrieval gateway, and the tool-calling
// loop, then condenses the transcript into bounded session history.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/domain"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/llm"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/logging"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/retrieval"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/tools"
)

// DefaultSystemPrompt is the assistant instruction used unless a deployment
// overrides it.
const DefaultSystemPrompt = "You are an academic planning assistant for the NUS Data Science & Analytics major. " +
	"Always review the full chat history so follow-up questions stay consistent. " +
	"Use a private chain-of-thought to break complex requests into sub-questions, plan the tool-call sequence, and call multiple tools when needed before answering. " +
	"If a student's question is ambiguous or missing critical details, ask for clarification before committing to a tool plan. " +
	"If a student's question does not specify an Academic year, assume the current: 2025-2026. " +
	"Ground every module fact in the provided NUSMods API tools and cross-check conflicting data. " +
	"If a question falls outside academic planning, politely steer the student back to relevant topics. " +
	"If a module cannot be located, apologise and suggest verifying the code or academic year, and if the tools cannot answer, explain the limitation instead of guessing. " +
	"If external information have been retrieved, make use of those information."

// Config is the per-session runtime configuration. It is immutable during a
// turn; Configure swaps it between turns and rebuilds the model bindings.
type Config struct {
	SystemPromptTemplate string `json:"system_prompt_template"`
	ReasoningEnabled     bool   `json:"reasoning_enabled"`
	RetrieverEnabled     bool   `json:"retriever_enabled"`
	MaxHistory           int    `json:"max_history"`
	MaxToolIterations    int    `json:"max_tool_iterations"`
}

// ConfigUpdate carries optional configuration changes. Nil fields retain
// the current value.
type ConfigUpdate struct {
	SystemPromptTemplate *string
	ReasoningEnabled     *bool
	RetrieverEnabled     *bool
}

// Deps are the shared collaborators a session binds to. The model client
// and index are read-only after initialization and safe to share across
// sessions.
type Deps struct {
	Client      llm.Client
	ChatModel   string
	Temperature *float64
	Index       retrieval.Index
	TopK        int
	Tools       *tools.Registry
	Log         *logging.Logger
}

// TurnMessage is one caller-facing history entry.
type TurnMessage struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Response is the result of one conversation turn.
type Response struct {
	Answer  string        `json:"answer"`
	History []TurnMessage `json:"history"`
	Trace   *Trace        `json:"developer_view,omitempty"`
}

// EvalResult is one isolated evaluation turn.
type EvalResult struct {
	Prompt  string        `json:"prompt"`
	Answer  string        `json:"answer"`
	History []TurnMessage `json:"history"`
}

// Session owns one conversation's state. It is designed for one caller at a
// time; the internal mutex serialises overlapping calls rather than
// interleaving them.
type Session struct {
	mu       sync.Mutex
	deps     Deps
	cfg      Config
	messages []domain.Message

	router  *Router
	loop    *Loop
	gateway *retrieval.Gateway
	log     *logging.Logger
}

// NewSession creates a session with the given configuration. Zero-value
// config fields fall back to defaults.
func NewSession(deps Deps, cfg Config) *Session {
	if cfg.SystemPromptTemplate == "" {
		cfg.SystemPromptTemplate = DefaultSystemPrompt
	}
	if cfg.MaxHistory == 0 {
		cfg.MaxHistory = 5
	}
	s := &Session{
		deps: deps,
		cfg:  cfg,
		log:  deps.Log.Sub("chat.session"),
	}
	s.rebuild()
	return s
}

// rebuild recreates the router, loop, and gateway from the current config.
// Called at construction and whenever Configure changes a field.
func (s *Session) rebuild() {
	s.router = NewRouter(s.deps.Client, s.deps.ChatModel, s.deps.Temperature, s.cfg.RetrieverEnabled, s.deps.Log)
	s.loop = NewLoop(s.deps.Client, s.deps.ChatModel, s.deps.Temperature, s.cfg.ReasoningEnabled, s.deps.Tools, s.cfg.MaxToolIterations, s.deps.Log)
	s.gateway = retrieval.NewGateway(s.deps.Index, s.cfg.RetrieverEnabled, s.deps.TopK, s.deps.Log)
}

// Config returns a copy of the current configuration.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Reset clears the stored conversation history unconditionally.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Configure applies the update. A nil field keeps the current value and a
// blank system prompt template is treated as "no change". When nothing
// actually changes, the model bindings are left untouched.
func (s *Session) Configure(update ConfigUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	if update.SystemPromptTemplate != nil {
		if candidate := strings.TrimSpace(*update.SystemPromptTemplate); candidate != "" {
			next.SystemPromptTemplate = *update.SystemPromptTemplate
		}
	}
	if update.ReasoningEnabled != nil {
		next.ReasoningEnabled = *update.ReasoningEnabled
	}
	if update.RetrieverEnabled != nil {
		next.RetrieverEnabled = *update.RetrieverEnabled
	}

	if next == s.cfg {
		return
	}
	s.cfg = next
	s.rebuild()
}

// Ask submits a user prompt and returns the assistant's reply together with
// the condensed history and, optionally, the developer trace.
func (s *Session) Ask(ctx context.Context, prompt string, developerView bool) (*Response, error) {
	return s.AskObserved(ctx, prompt, developerView, nil)
}

// AskObserved is Ask with a turn observer attached. The observer receives
// intermediate events (assistant messages, tool activity, router decision)
// and never influences control flow.
func (s *Session) AskObserved(ctx context.Context, prompt string, developerView bool, obs Observer) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrInvalidInput
	}

	history := make([]domain.Message, 0, len(s.messages)+1)
	for _, m := range s.messages {
		history = append(history, m.Clone())
	}
	history = append(history, domain.User(prompt))
	history = Trim(history, s.cfg.MaxHistory)

	var trace *Trace
	if developerView {
		modelInput := make([]domain.Message, 0, len(history)+1)
		modelInput = append(modelInput, domain.System(s.cfg.SystemPromptTemplate))
		modelInput = append(modelInput, history...)
		trace = &Trace{
			ModelInput:    traceMessages(modelInput),
			Configuration: s.cfg,
		}
	}

	collect := func(event TurnEvent) {
		if trace != nil && event.Message != nil {
			trace.StreamEvents = append(trace.StreamEvents, traceMessage(*event.Message))
		}
		emit(obs, event)
	}

	decision, err := s.router.Decide(ctx, prompt, "")
	if err != nil {
		return nil, err
	}
	collect(TurnEvent{Type: EventRouter, Detail: string(decision.Action), Payload: decision})
	if trace != nil {
		trace.RouterDecision = string(decision.Action)
		trace.RouterQuery = decision.Query
	}

	var docs []retrieval.Document
	if decision.Action == ActionRetrieve {
		query := decision.Query
		if query == "" {
			query = prompt
		}
		docs, err = s.gateway.Retrieve(ctx, query)
		if err != nil {
			// Retrieval is an optimization; the turn proceeds without
			// context instead of aborting.
			s.log.Warn().Err(err).Msg("retrieval failed, continuing without context")
			docs = nil
		}
		if len(docs) > 0 {
			collect(TurnEvent{Type: EventRetrievedDocs, Payload: docs})
		}
	}
	if trace != nil {
		trace.RetrievedDocs = docs
	}

	var contextBlock string
	if s.gateway.Enabled() {
		contextBlock = retrieval.CombineContext(docs)
	}

	final, err := s.loop.Run(ctx, s.cfg.SystemPromptTemplate, history, contextBlock, collect)
	if err != nil {
		// No partial state commit: the session keeps its pre-turn history.
		return nil, err
	}

	condensed := Condense(final, s.cfg.MaxHistory)
	s.messages = condensed

	if trace != nil {
		trace.StoredState = traceMessages(condensed)
	}

	return &Response{
		Answer:  latestAnswer(condensed),
		History: projectHistory(condensed),
		Trace:   trace,
	}, nil
}

// Evaluate runs each prompt as an isolated turn: the session is reset
// before every prompt so no context leaks across them. Blank prompts are
// discarded; input order is preserved.
func (s *Session) Evaluate(ctx context.Context, prompts []string) ([]EvalResult, error) {
	var results []EvalResult
	for _, prompt := range prompts {
		clean := strings.TrimSpace(prompt)
		if clean == "" {
			continue
		}
		s.Reset()
		resp, err := s.Ask(ctx, clean, false)
		if err != nil {
			return results, err
		}
		results = append(results, EvalResult{
			Prompt:  clean,
			Answer:  resp.Answer,
			History: resp.History,
		})
	}
	return results, nil
}

// latestAnswer returns the most recent assistant message with non-empty
// content, skipping argument-only tool-planning replies.
func latestAnswer(msgs []domain.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleAssistant && strings.TrimSpace(msgs[i].Content) != "" {
			return msgs[i].Content
		}
	}
	return ""
}

// projectHistory maps condensed state into the caller-facing history.
// Condensed history holds only user and assistant turns; the tool role is
// the one other role allowed through, for trace completeness.
func projectHistory(msgs []domain.Message) []TurnMessage {
	out := make([]TurnMessage, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case domain.RoleUser, domain.RoleAssistant, domain.RoleTool:
		default:
			continue
		}
		if msg.Role == domain.RoleAssistant && strings.TrimSpace(msg.Content) == "" {
			continue
		}
		out = append(out, TurnMessage{
			Role:     msg.Role,
			Content:  msg.Content,
			Metadata: domain.SafeMetadata(msg.Metadata),
		})
	}
	return out
}
