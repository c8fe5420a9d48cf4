package retrieve

import (
	"context"
	"testing"

	"newsbrief/internal/model"
	"newsbrief/internal/persistence/databases"
)

type fakeEmbedder struct {
	vec []float32
}

func (f fakeEmbedder) EmbedText(_ context.Context, _ string, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = f.vec
	}
	return out, nil
}

func seedCorpus(t *testing.T, search databases.FullTextSearch, vector databases.VectorStore) {
	t.Helper()
	ctx := context.Background()
	articles := []struct {
		id, text, date string
		vec            []float32
	}{
		{"a1", "central bank raises interest rates amid inflation", "2026-07-28", []float32{1, 0}},
		{"a2", "interest rate decision sparks market rally", "2026-07-29", []float32{0.9, 0.1}},
		{"a3", "unrelated story about local sports team", "2026-07-29", []float32{0, 1}},
	}
	for _, a := range articles {
		md := map[string]string{"article_id": a.id, "published_date": a.date, "language": "en", "source": "reuters.com"}
		_ = search.Index(ctx, a.id, a.text, md)
		if vector != nil {
			_ = vector.Upsert(ctx, a.id, a.vec, md)
		}
	}
}

func TestRetriever_Retrieve_RespectsKFinalAndDedupes(t *testing.T) {
	search := databases.NewMemorySearch()
	vector := databases.NewMemoryVector()
	seedCorpus(t, search, vector)

	r := &Retriever{
		Search:   search,
		Vector:   vector,
		Embedder: fakeEmbedder{vec: []float32{1, 0}},
		Reranker: NoopReranker{},
	}

	docs, err := r.Retrieve(context.Background(), "interest rate", Window{}, "en", nil, 2, false)
	if err != nil {
		t.Fatalf("Retrieve error: %v", err)
	}
	if len(docs) > 2 {
		t.Fatalf("expected at most 2 documents, got %d", len(docs))
	}
	seen := map[string]bool{}
	for _, d := range docs {
		if seen[d.ArticleID] {
			t.Fatalf("duplicate article_id %q in result", d.ArticleID)
		}
		seen[d.ArticleID] = true
	}
}

func TestRetriever_Retrieve_NoVectorBackendFallsBackToLexical(t *testing.T) {
	search := databases.NewMemorySearch()
	seedCorpus(t, search, nil)

	r := &Retriever{Search: search}
	docs, err := r.Retrieve(context.Background(), "interest rate", Window{}, "en", nil, 5, false)
	if err != nil {
		t.Fatalf("Retrieve error: %v", err)
	}
	if len(docs) == 0 {
		t.Fatalf("expected lexical-only results")
	}
}

func TestRetriever_Retrieve_UsesTermOverlapRerank(t *testing.T) {
	search := databases.NewMemorySearch()
	vector := databases.NewMemoryVector()
	seedCorpus(t, search, vector)

	r := &Retriever{
		Search:   search,
		Vector:   vector,
		Embedder: fakeEmbedder{vec: []float32{1, 0}},
		Reranker: TermOverlapReranker{},
	}
	docs, err := r.Retrieve(context.Background(), "interest rate", Window{}, "en", nil, 5, true)
	if err != nil {
		t.Fatalf("Retrieve error: %v", err)
	}
	if len(docs) == 0 {
		t.Fatalf("expected non-empty reranked results")
	}
}

func TestDedupeDocsByArticleID(t *testing.T) {
	docs := []model.Document{
		model.NewDocument("a", "A", "", "2026-07-01", "en", 0.9, ""),
		model.NewDocument("a", "A dup", "", "2026-07-01", "en", 0.1, ""),
		model.NewDocument("b", "B", "", "2026-07-01", "en", 0.5, ""),
	}
	out := dedupeDocsByArticleID(docs)
	if len(out) != 2 {
		t.Fatalf("expected 2 deduped docs, got %d", len(out))
	}
}
