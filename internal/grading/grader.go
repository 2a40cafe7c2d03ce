// Package grading scores finished answers with an independent judge model.
package grading

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/llm"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/logging"
)

const judgeSystemPrompt = "You are an impartial grading assistant for a course-planning chatbot. " +
	"Follow the evaluation rubric exactly and respond with a single JSON object " +
	"containing only the keys accuracy, relevance, and coherence. Round each " +
	"score to one decimal place and do not include any extra commentary, " +
	"markdown, or prose."

const judgeUserTemplate = `You are an impartial grading assistant for a course-planning chatbot. Your task is to evaluate the chatbot's response to a given academic query.

QUESTION:
%s

GROUND TRUTH:
%s

PREDICTED ANSWER:
%s

---

### Evaluation Criteria (0-1 for each)
1. **Accuracy (0-1):** How correctly does the chatbot understand the user and provide the right information? You can measure this through intent recognition or by comparing the response to the ground truth.

2. **Relevance (0-1):** Does the response directly answer the question or address the user's needs?

3. **Fluency and Coherence (0-1):** Is the response grammatically correct, easy to understand, and logically structured?

---

Each score must be between 0 and 1, using increments of 0.1.

### Output Format
Return only a single JSON object with numeric scores rounded to one decimal place, formatted as follows:

{"accuracy": {score}, "relevance": {score}, "coherence": {score}}`

// Result is the outcome of grading one answer. A failed judge call or an
// unparseable reply populates Error; scores are never silently defaulted.
type Result struct {
	Scores    map[string]float64 `json:"scores,omitempty"`
	Total     float64            `json:"total,omitempty"`
	RawOutput string             `json:"raw_judge_output,omitempty"`
	Mode      ParseMode          `json:"parse_mode,omitempty"`
	Error     string             `json:"error,omitempty"`
	Trace     *Trace             `json:"developer_view,omitempty"`
}

// Trace is the grader's developer-view payload.
type Trace struct {
	Messages    []llm.Message      `json:"messages"`
	RawResponse string             `json:"raw_response,omitempty"`
	Scores      map[string]float64 `json:"parsed_scores,omitempty"`
	ParseMode   ParseMode          `json:"parse_mode,omitempty"`
	ParseError  string             `json:"parse_error,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Grader grades answers with a single judge-model call per answer.
type Grader struct {
	client llm.Client
	model  string
	log    *logging.Logger
}

// NewGrader creates a grader bound to the given judge model.
func NewGrader(client llm.Client, model string, log *logging.Logger) *Grader {
	return &Grader{client: client, model: model, log: log.Sub("grading")}
}

// Grade evaluates an answer against a reference. Empty question or answer
// inputs are rejected before any model call; a blank ground truth is
// replaced with placeholder text. Judge failures are reported inside the
// Result rather than returned, so a grading failure never fails an
// otherwise-successful chat turn.
func (g *Grader) Grade(ctx context.Context, question, groundTruth, answer string, developerView bool) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question must not be empty")
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("answer must not be empty")
	}
	groundTruth = strings.TrimSpace(groundTruth)
	if groundTruth == "" {
		groundTruth = "[ground truth not provided]"
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: judgeSystemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf(judgeUserTemplate, question, groundTruth, answer)},
	}

	result := &Result{}
	if developerView {
		result.Trace = &Trace{Messages: messages}
	}

	zero := 0.0
	resp, err := g.client.Chat(ctx, llm.ChatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: &zero,
		Think:       true,
	})
	if err != nil {
		g.log.Warn().Err(err).Msg("judge invocation failed")
		result.Error = err.Error()
		if result.Trace != nil {
			result.Trace.Error = err.Error()
		}
		return result, nil
	}

	raw := strings.TrimSpace(resp.Message.Content)
	result.RawOutput = raw

	scores, mode, parseErr := parseScores(raw)
	result.Mode = mode
	if len(scores) > 0 {
		result.Scores = scores
		var total float64
		for _, v := range scores {
			total += v
		}
		result.Total = math.Round(total*10) / 10
	}
	if parseErr != "" {
		result.Error = parseErr
	}

	if result.Trace != nil {
		result.Trace.RawResponse = raw
		result.Trace.Scores = scores
		result.Trace.ParseMode = mode
		result.Trace.ParseError = parseErr
	}
	return result, nil
}
