package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoresDirectJSON(t *testing.T) {
	scores, mode, errStr := parseScores(`{"accuracy": 0.8, "relevance": 1.0, "coherence": 0.9}`)
	assert.Equal(t, ParseModeJSON, mode)
	assert.Empty(t, errStr)
	require.Len(t, scores, 3)
	assert.InDelta(t, 0.8, scores["accuracy"], 1e-9)
	assert.InDelta(t, 1.0, scores["relevance"], 1e-9)
	assert.InDelta(t, 0.9, scores["coherence"], 1e-9)
}

func TestParseScoresEmbeddedJSONSpan(t *testing.T) {
	reply := "Here is my assessment:\n{\"Accuracy\": 0.7, \"Relevance\": 0.6, \"Coherence\": 1}\nHope that helps."
	scores, mode, errStr := parseScores(reply)
	assert.Equal(t, ParseModeJSON, mode)
	assert.Empty(t, errStr)
	assert.InDelta(t, 0.7, scores["accuracy"], 1e-9)
	assert.InDelta(t, 0.6, scores["relevance"], 1e-9)
	assert.InDelta(t, 1.0, scores["coherence"], 1e-9)
}

func TestParseScoresRegexFallback(t *testing.T) {
	scores, mode, errStr := parseScores("accuracy: 0.7, relevance=0.5, coherence: 1")
	assert.Equal(t, ParseModeRegex, mode)
	assert.Empty(t, errStr)
	assert.InDelta(t, 0.7, scores["accuracy"], 1e-9)
	assert.InDelta(t, 0.5, scores["relevance"], 1e-9)
	assert.InDelta(t, 1.0, scores["coherence"], 1e-9)
}

func TestParseScoresWordBoundary(t *testing.T) {
	scores, mode, _ := parseScores("inaccuracy: 0.2, relevance: 0.5, coherence: 0.5")
	assert.Equal(t, ParseModeRegex, mode)
	_, ok := scores["accuracy"]
	assert.False(t, ok)
}

func TestParseScoresRoundsAndClamps(t *testing.T) {
	scores, _, errStr := parseScores(`{"accuracy": 1.5, "relevance": -0.3, "coherence": 0.84}`)
	assert.Empty(t, errStr)
	assert.InDelta(t, 1.0, scores["accuracy"], 1e-9)
	assert.InDelta(t, 0.0, scores["relevance"], 1e-9)
	assert.InDelta(t, 0.8, scores["coherence"], 1e-9)
}

func TestParseScoresMissingCriteria(t *testing.T) {
	scores, mode, errStr := parseScores(`{"accuracy": 0.8}`)
	assert.Equal(t, ParseModeJSON, mode)
	assert.Equal(t, "Missing scores for: coherence, relevance", errStr)
	require.Len(t, scores, 1)
	assert.InDelta(t, 0.8, scores["accuracy"], 1e-9)
}

func TestParseScoresInvalidValue(t *testing.T) {
	scores, _, errStr := parseScores(`{"accuracy": "excellent", "relevance": 0.9, "coherence": 0.9}`)
	assert.Equal(t, "Invalid numeric value for: accuracy", errStr)
	require.Len(t, scores, 2)
}

func TestParseScoresUnusable(t *testing.T) {
	for _, reply := range []string{"", "The answer looks fine to me.", "scores: good"} {
		scores, mode, errStr := parseScores(reply)
		assert.Empty(t, scores)
		assert.Equal(t, ParseModeFailed, mode)
		assert.Contains(t, errStr, "Grader response did not contain usable scores.")
	}
}

func TestParseScoresStringNumbers(t *testing.T) {
	scores, mode, errStr := parseScores(`{"accuracy": "0.8", "relevance": "1", "coherence": "0.9"}`)
	assert.Equal(t, ParseModeJSON, mode)
	assert.Empty(t, errStr)
	assert.InDelta(t, 0.8, scores["accuracy"], 1e-9)
	assert.InDelta(t, 1.0, scores["relevance"], 1e-9)
}
