package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/logging"
)

// defaultTopK is the number of documents fetched per query.
const defaultTopK = 4

// snippetMaxChars truncates per-document text in formatted summaries.
const snippetMaxChars = 500

// Gateway queries a pluggable similarity index. When disabled it is a
// side-effect-free no-op: the index is never touched.
type Gateway struct {
	index   Index
	enabled bool
	topK    int
	log     *logging.Logger
}

// NewGateway creates a retrieval gateway over the given index. topK <= 0
// uses the default of 4.
func NewGateway(index Index, enabled bool, topK int, log *logging.Logger) *Gateway {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Gateway{
		index:   index,
		enabled: enabled && index != nil,
		topK:    topK,
		log:     log.Sub("retrieval"),
	}
}

// Enabled reports whether retrieval is active.
func (g *Gateway) Enabled() bool { return g.enabled }

// Retrieve fetches supporting documents for a query in the index's
// relevance order. Disabled gateways and blank queries return nothing
// without touching the index.
func (g *Gateway) Retrieve(ctx context.Context, query string) ([]Document, error) {
	if !g.enabled {
		return nil, nil
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	docs, err := g.index.SimilaritySearch(ctx, query, g.topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	g.log.Debug().Str("query", query).Int("docs", len(docs)).Msg("retrieved documents")
	return docs, nil
}

// FormatDocuments renders labeled, truncated snippets for prompts shown to
// a secondary model (the router's context summary).
func FormatDocuments(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}
	snippets := make([]string, 0, len(docs))
	for i, doc := range docs {
		text := strings.TrimSpace(doc.Content)
		if len(text) > snippetMaxChars {
			text = strings.TrimRight(text[:snippetMaxChars], " \t\n")
		}
		snippets = append(snippets, fmt.Sprintf("Doc %d: %s", i+1, text))
	}
	return strings.Join(snippets, "\n\n")
}

// CombineContext joins untruncated document contents into the context block
// used to augment the user's message.
func CombineContext(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		text := strings.TrimSpace(doc.Content)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
