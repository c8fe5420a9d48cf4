// Package memory implements the Memory Store (spec.md §4.6): persistent,
// vector-indexed records with TTL expiration, importance, user scoping,
// and semantic recall. Grounded on the teacher's
// internal/persistence/databases/postgres_vector.go (pgx-backed ANN
// store) and memory_vector.go (mutex-guarded map + linear cosine scan),
// generalized from bare embeddings to the full TTL/soft-delete/importance
// lifecycle this spec requires.
package memory

import (
	"context"
	"math"
	"time"

	"newsbrief/internal/model"
)

// Store is the Memory Store's operation set. Unlike the Retriever and
// Agent Set, it is legitimately process-wide (spec.md §9): a single Store
// instance is shared across requests, since memories outlive any one
// request's context.
type Store interface {
	// Store computes ExpiresAt = CreatedAt + TTLDays, normalizes the
	// embedding to unit length, and inserts the record.
	Store(ctx context.Context, rec model.MemoryRecord) (model.MemoryRecord, error)
	// Recall runs cosine similarity search over active records
	// (DeletedAt == nil && ExpiresAt > now), optionally scoped to userID,
	// returning up to topK records with similarity >= minSimilarity sorted
	// descending by similarity. Each returned record's AccessedAt/AccessCount
	// is bumped as a side effect.
	Recall(ctx context.Context, queryEmbedding []float32, userID string, topK int, minSimilarity float64) ([]model.MemoryRecord, error)
	// GetByID fetches a record regardless of lifecycle state.
	GetByID(ctx context.Context, id string) (model.MemoryRecord, bool, error)
	// Delete soft-deletes a record (sets DeletedAt); hard-delete is out of
	// scope per spec.md §9.
	Delete(ctx context.Context, id string) error
	// CleanupExpired transitions every active-but-expired record to
	// deleted and returns the count transitioned. Idempotent: a record
	// already deleted is not recounted.
	CleanupExpired(ctx context.Context, now time.Time) (int, error)
}

// normalize returns a unit-length copy of v (spec.md §4.6's invariant
// that similarity is cosine over unit-normalized embeddings, normalized
// at insert time).
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return append([]float32(nil), v...)
	}
	n := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

func cosineSim(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
