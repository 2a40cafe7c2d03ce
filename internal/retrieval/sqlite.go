package retrieval

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/llm"
	"github.com/kangwei01/dsa-mod-planning-chatbot/internal/logging"
)

// SQLiteIndex is a similarity index over documents embedded at ingestion
// time and stored in SQLite. Vectors are loaded into memory at open; the
// index is read-only afterwards and safe to share across sessions.
type SQLiteIndex struct {
	embedder llm.Embedder
	docs     []indexedDocument
	log      *logging.Logger
}

type indexedDocument struct {
	content   string
	metadata  map[string]any
	embedding []float32
}

// OpenSQLiteIndex loads the vector index at the given path. The schema is
// produced by the ingestion step:
//
//	documents(id INTEGER PRIMARY KEY, content TEXT, metadata TEXT, embedding BLOB)
//
// with embeddings stored as little-endian float32 sequences.
func OpenSQLiteIndex(path string, embedder llm.Embedder, log *logging.Logger) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT content, metadata, embedding FROM documents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}
	defer rows.Close()

	idx := &SQLiteIndex{embedder: embedder, log: log.Sub("retrieval.index")}
	for rows.Next() {
		var content string
		var metadataJSON sql.NullString
		var blob []byte
		if err := rows.Scan(&content, &metadataJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		doc := indexedDocument{content: content, embedding: decodeVector(blob)}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &doc.metadata); err != nil {
				return nil, fmt.Errorf("decoding document metadata: %w", err)
			}
		}
		idx.docs = append(idx.docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	idx.log.Info().Str("path", path).Int("documents", len(idx.docs)).Msg("vector index loaded")
	return idx, nil
}

// SimilaritySearch embeds the query and returns the k nearest documents by
// cosine similarity, best first.
func (idx *SQLiteIndex) SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error) {
	if len(idx.docs) == 0 {
		return nil, nil
	}

	qv, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	type scored struct {
		doc   indexedDocument
		score float64
	}
	ranked := make([]scored, 0, len(idx.docs))
	for _, doc := range idx.docs {
		ranked = append(ranked, scored{doc: doc, score: cosineSimilarity(qv, doc.embedding)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]Document, 0, k)
	for _, entry := range ranked[:k] {
		out = append(out, Document{
			Content:  entry.doc.content,
			Metadata: entry.doc.metadata,
			Score:    entry.score,
		})
	}
	return out, nil
}

// decodeVector converts a little-endian float32 blob into a vector.
func decodeVector(blob []byte) []float32 {
	n := len(blob) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(blob[i*4 : i*4+4])
		vec[i] = math.Float32frombits(bits)
	}
	return vec
}

// EncodeVector converts a vector into the blob form stored by ingestion.
func EncodeVector(vec []float32) []byte {
	blob := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(blob[i*4:i*4+4], math.Float32bits(v))
	}
	return blob
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
