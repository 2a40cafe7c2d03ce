// Package retrieval provides the similarity-search gateway that supplies
// curriculum context to the conversation engine.
package retrieval

import "context"

// Document is one retrieved snippet with its relevance metadata. Documents
// are ephemeral per turn and never persisted into conversation history.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score,omitempty"`
}

// Index is the similarity-search collaborator. An out-of-band ingestion
// step builds the index; the engine only queries it.
type Index interface {
	// SimilaritySearch returns up to k documents ordered by relevance.
	SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error)
}
