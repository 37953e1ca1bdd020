package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/dgallion1/wikigest/internal/doctree"
)

// SearchChunks ranks stored chunks against the query vector by cosine
// similarity and returns the top limit results. Chunks without an
// embedding, or with a mismatched dimension, are skipped. This scans
// every embedded chunk; fine for the corpus sizes a single SQLite file
// can hold.
func (s *Store) SearchChunks(ctx context.Context, query []float32, limit int) ([]SearchResult, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("storage: empty query vector")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, doc_id, text, token_count, chunk_type,
			section_path, paragraph_index, subchunk_index, embedding
		FROM chunks WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		c, blob, err := scanChunkWithEmbedding(rows)
		if err != nil {
			return nil, err
		}
		vec := deserializeVector(blob)
		if len(vec) != len(query) {
			continue
		}
		results = append(results, SearchResult{
			Chunk: *c,
			Score: cosineSimilarity(query, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func scanChunkWithEmbedding(rows *sql.Rows) (*doctree.Chunk, []byte, error) {
	var c doctree.Chunk
	var path string
	var sub sql.NullInt64
	var blob []byte
	if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Text, &c.TokenCount,
		&c.ChunkType, &path, &c.ParagraphIndex, &sub, &blob); err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal([]byte(path), &c.SectionPath); err != nil {
		return nil, nil, fmt.Errorf("failed to decode section path: %w", err)
	}
	if sub.Valid {
		v := int(sub.Int64)
		c.SubchunkIndex = &v
	}
	return &c, blob, nil
}

// serializeVector packs a float32 slice little-endian into a blob.
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
