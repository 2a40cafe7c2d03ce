package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/llm"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/logging"
)

// RouteAction is the router's verdict for a turn.
type RouteAction string

const (
	ActionRetrieve RouteAction = "retrieve"
	ActionProceed  RouteAction = "proceed"
)

// ParseMode tags which parsing path produced a router decision, so tests
// and traces can tell a well-formed reply from a salvaged one.
type ParseMode string

const (
	// ParseModeNone means no model call was made (retrieval disabled).
	ParseModeNone ParseMode = "none"
	// ParseModeJSON means the structured reply parsed directly.
	ParseModeJSON ParseMode = "json"
	// ParseModeHeuristic means the reply was malformed and the decision
	// came from the substring fallback.
	ParseModeHeuristic ParseMode = "heuristic"
)

// Decision is the router's output for one turn.
type Decision struct {
	Action RouteAction
	Query  string
	Mode   ParseMode
}

const routerPromptTemplate = `You are a routing agent helping a course-planning assistant.

The user asked: %q

The assistant already has access to these retrieved documents:
%s

DECIDE: Does the assistant need to retrieve more documents?

Choose "retrieve" if:
- Query asks about DSA major requirements, CHS curriculum, specializations, or graduation requirements
- AND the retrieved documents do NOT contain the specific information needed to answer

Choose "proceed" if:
- The retrieved documents already contain sufficient information to answer the query
- OR the query doesn't require academic requirement documents

If you choose "retrieve", ALSO craft a concise keyword-style search phrase (no more than 10 words) that best captures the user's intent for document retrieval.

Respond in JSON with two keys:
- "decision": either "retrieve" or "proceed"
- "query": the keyword search phrase when decision is "retrieve", otherwise an empty string`

// Router issues a single-shot model call deciding whether a retrieval pass
// is needed before the assistant answers.
type Router struct {
	client      llm.Client
	model       string
	temperature *float64
	enabled     bool
	log         *logging.Logger
}

// NewRouter creates a router. When enabled is false, Decide always proceeds
// without a model call.
func NewRouter(client llm.Client, model string, temperature *float64, enabled bool, log *logging.Logger) *Router {
	return &Router{
		client:      client,
		model:       model,
		temperature: temperature,
		enabled:     enabled,
		log:         log.Sub("chat.router"),
	}
}

// Decide returns the routing verdict for the latest user message given a
// summary of documents already retrieved this turn. Malformed model output
// degrades to a substring heuristic rather than failing the turn.
func (r *Router) Decide(ctx context.Context, userText, contextSummary string) (Decision, error) {
	if !r.enabled {
		return Decision{Action: ActionProceed, Mode: ParseModeNone}, nil
	}

	summary := contextSummary
	if strings.TrimSpace(summary) == "" {
		summary = "[No documents retrieved yet]"
	}
	prompt := fmt.Sprintf(routerPromptTemplate, userText, summary)

	resp, err := r.client.Chat(ctx, llm.ChatRequest{
		Model:       r.model,
		Messages:    []llm.Message{{Role: llm.RoleSystem, Content: prompt}},
		Temperature: r.temperature,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("router model invocation: %w", err)
	}

	decision := parseRouterReply(resp.Message.Content)
	r.log.Debug().
		Str("action", string(decision.Action)).
		Str("query", decision.Query).
		Str("parseMode", string(decision.Mode)).
		Msg("router decided")
	return decision, nil
}

type routerReply struct {
	Decision string `json:"decision"`
	Query    string `json:"query"`
}

// parseRouterReply tries a strict structured decode first and falls back to
// a case-insensitive substring scan. Models probabilistically violate
// format instructions, so the fallback is mandatory.
func parseRouterReply(raw string) Decision {
	var reply routerReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &reply); err == nil {
		d := Decision{Action: ActionProceed, Mode: ParseModeJSON}
		if strings.EqualFold(strings.TrimSpace(reply.Decision), "retrieve") {
			d.Action = ActionRetrieve
		}
		d.Query = strings.TrimSpace(reply.Query)
		return d
	}

	d := Decision{Action: ActionProceed, Mode: ParseModeHeuristic}
	if strings.Contains(strings.ToLower(raw), "retrieve") {
		d.Action = ActionRetrieve
	}
	return d
}
