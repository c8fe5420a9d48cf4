package retrieve

import (
	"context"
	"sort"
	"strings"

	"newsbrief/internal/model"
)

// Reranker re-scores the top candidates against the query
// (spec.md §4.3 step 5). Implementations must not drop documents.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []model.Document) ([]model.Document, error)
}

// NoopReranker leaves ordering unchanged; it is the default when no
// reranker is configured, grounded on the teacher's NoopReranker.
type NoopReranker struct{}

func (NoopReranker) Rerank(_ context.Context, _ string, docs []model.Document) ([]model.Document, error) {
	return docs, nil
}

// TermOverlapReranker re-scores documents by the fraction of query terms
// present in title+snippet, resorting descending. It stands in for a
// cross-encoder model: a real deployment would substitute a Provider-backed
// or dedicated reranking endpoint behind the same interface.
type TermOverlapReranker struct{}

func (TermOverlapReranker) Rerank(_ context.Context, query string, docs []model.Document) ([]model.Document, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return docs, nil
	}
	scored := make([]model.Document, len(docs))
	copy(scored, docs)
	overlap := func(d model.Document) float64 {
		hay := strings.ToLower(d.Title + " " + d.Snippet)
		hits := 0
		for _, t := range terms {
			if t != "" && strings.Contains(hay, t) {
				hits++
			}
		}
		return float64(hits) / float64(len(terms))
	}
	scores := make(map[string]float64, len(scored))
	for _, d := range scored {
		scores[d.ArticleID] = overlap(d)*0.5 + d.Score*0.5
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scores[scored[i].ArticleID] > scores[scored[j].ArticleID]
	})
	return scored, nil
}
