package retrieve

import (
	"context"
	"fmt"
	"time"

	"newsbrief/internal/model"
	"newsbrief/internal/persistence/databases"
	"newsbrief/internal/telemetry"
)

// topNCandidates is how many fused candidates survive to the
// optional-rerank/dedupe stage (spec.md §4.3 step 4: "Take the top 30").
const topNCandidates = 30

// Embedder produces embeddings for a query, satisfied by
// internal/llm/google.Client.EmbedText.
type Embedder interface {
	EmbedText(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

// Retriever implements spec.md §4.3's hybrid retrieve contract.
type Retriever struct {
	Search   databases.FullTextSearch
	Vector   databases.VectorStore
	Embedder Embedder
	EmbedModel string

	Reranker Reranker
	Cache    *Cache
	Metrics  telemetry.Metrics
}

// Retrieve implements retrieve(query, window, language, sources, k_final,
// use_rerank) → Documents[] with len(result) ≤ k_final and no duplicate
// article_id (spec.md §4.3's contract). It does not perform auto-recovery;
// that ladder lives one level up in the Context Builder (spec.md §4.7).
func (r *Retriever) Retrieve(ctx context.Context, query string, window Window, language string, sources []string, kFinal int, useRerank bool) ([]model.Document, error) {
	if kFinal <= 0 {
		kFinal = 6
	}
	metrics := r.Metrics
	if metrics == nil {
		metrics = telemetry.NewMockMetrics()
	}

	if r.Cache != nil {
		if docs, ok := r.Cache.Get(ctx, query, window, language, sources, kFinal, useRerank); ok {
			metrics.IncCounter("retrieval_cache_hit", nil)
			return docs, nil
		}
		metrics.IncCounter("retrieval_cache_miss", nil)
	}

	plan := buildQueryPlan(ctx, query, window, language, sources)

	var queryEmbedding []float32
	if r.Embedder != nil {
		t0 := time.Now()
		embs, err := r.Embedder.EmbedText(ctx, r.EmbedModel, []string{plan.Query})
		metrics.ObserveHistogram("retrieval_embed_ms", float64(time.Since(t0).Milliseconds()), nil)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		if len(embs) > 0 {
			queryEmbedding = embs[0]
		}
	}

	fts, vecs, diag, err := fetchCandidates(ctx, r.Search, r.Vector, plan, queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	metrics.ObserveHistogram("retrieval_fts_ms", float64(diag.FTSLatency.Milliseconds()), nil)
	metrics.ObserveHistogram("retrieval_vector_ms", float64(diag.VectorLatency.Milliseconds()), nil)
	metrics.IncCounter("retrieval_fts_candidates", nil)
	metrics.IncCounter("retrieval_vector_candidates", nil)

	fused := fuseRRF(fts, vecs)
	if len(fused) > topNCandidates {
		fused = fused[:topNCandidates]
	}

	docs := toDocuments(fused)

	if useRerank && r.Reranker != nil {
		t0 := time.Now()
		reranked, err := r.Reranker.Rerank(ctx, plan.Query, docs)
		metrics.ObserveHistogram("retrieval_rerank_ms", float64(time.Since(t0).Milliseconds()), nil)
		if err != nil {
			return nil, fmt.Errorf("rerank: %w", err)
		}
		docs = reranked
	}

	docs = dedupeDocsByArticleID(docs)

	if len(docs) > kFinal {
		docs = docs[:kFinal]
	}

	if r.Cache != nil {
		_ = r.Cache.Set(ctx, query, window, language, sources, kFinal, useRerank, docs)
	}

	return docs, nil
}

func dedupeDocsByArticleID(docs []model.Document) []model.Document {
	seen := make(map[string]struct{}, len(docs))
	out := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.ArticleID]; ok {
			continue
		}
		seen[d.ArticleID] = struct{}{}
		out = append(out, d)
	}
	return out
}
