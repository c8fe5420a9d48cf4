package contextbuilder

import (
	"context"
	"testing"

	"newsbrief/internal/config"
	"newsbrief/internal/persistence/databases"
	"newsbrief/internal/retrieve"
)

type fakeEmbedder struct{ vec []float32 }

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
		{"a3", "interest rate hike reaction from analysts", "2026-07-29", []float32{0.8, 0.2}},
		{"a4", "interest rate cut speculation grows", "2026-07-29", []float32{0.75, 0.25}},
		{"a5", "interest rate outlook for next quarter", "2026-07-29", []float32{0.6, 0.4}},
		{"a6", "interest rate impact on mortgage markets", "2026-07-29", []float32{0.55, 0.45}},
		{"a7", "unrelated story about local sports team", "2026-07-29", []float32{0, 1}},
		{"a8", "unrelated recipe roundup for the weekend", "2026-07-29", []float32{0, 1}},
	}
	for _, a := range articles {
		md := map[string]string{"article_id": a.id, "published_date": a.date, "language": "en", "source": "reuters.com"}
		_ = search.Index(ctx, a.id, a.text, md)
		if vector != nil {
			_ = vector.Upsert(ctx, a.id, a.vec, md)
		}
	}
}

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	search := databases.NewMemorySearch()
	vector := databases.NewMemoryVector()
	seedCorpus(t, search, vector)

	r := &retrieve.Retriever{
		Search:   search,
		Vector:   vector,
		Embedder: fakeEmbedder{vec: []float32{1, 0}},
		Reranker: retrieve.NoopReranker{},
	}
	cfg := config.Config{
		Retriever: config.RetrieverConfig{
			WindowDefault:            "24h",
			KFinalDefault:            5,
			EnableRerank:             false,
			AutoExpandWindow:         true,
			RelaxFiltersOnEmpty:      true,
			FallbackRerankOffOnEmpty: true,
		},
		Budget: config.BudgetConfig{
			MaxTokensPerCommand:    8192,
			MaxCostCentsPerCommand: 50,
			MaxDurationSec:         20,
		},
	}
	return New(r, cfg)
}

func TestBuild_UnknownCommandFails(t *testing.T) {
	b := testBuilder(t)
	_, errResp := b.Build(context.Background(), RequestArgs{RawCommand: "/bogus"})
	if errResp == nil {
		t.Fatalf("expected an error response")
	}
	if errResp.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s", errResp.Code)
	}
}

func TestBuild_TrendsRetrievesAndValidates(t *testing.T) {
	b := testBuilder(t)
	c, errResp := b.Build(context.Background(), RequestArgs{
		RawCommand: "/trends",
		Args:       map[string]string{"query": "interest rate"},
	})
	if errResp != nil {
		t.Fatalf("unexpected error response: %+v", errResp)
	}
	if c.Command != "trends" {
		t.Fatalf("expected command trends, got %s", c.Command)
	}
	if len(c.Docs) == 0 {
		t.Fatalf("expected retrieved documents")
	}
	if c.Params["k_final"].(int) != len(c.Docs) {
		t.Fatalf("expected k_final to match retrieved doc count")
	}
	if c.CorrelationID == "" {
		t.Fatalf("expected a correlation id")
	}
}

func TestBuild_MemoryStoreSkipsRetrieval(t *testing.T) {
	b := testBuilder(t)
	c, errResp := b.Build(context.Background(), RequestArgs{
		RawCommand: "/memory store",
		Args:       map[string]string{"query": "note this down"},
	})
	if errResp != nil {
		t.Fatalf("unexpected error response: %+v", errResp)
	}
	if len(c.Docs) != 0 {
		t.Fatalf("expected memory_store to skip retrieval, got %d docs", len(c.Docs))
	}
	if !c.NeedsMemory {
		t.Fatalf("expected NeedsMemory to be set")
	}
}

func TestBuild_NoMatchingDocumentsReturnsNoData(t *testing.T) {
	// Lexical-only retriever (no vector/embedder) so an unrelated query
	// genuinely finds nothing, instead of the fixed test embedding vector
	// matching every seeded document regardless of its text.
	search := databases.NewMemorySearch()
	seedCorpus(t, search, nil)
	r := &retrieve.Retriever{Search: search, Reranker: retrieve.NoopReranker{}}
	cfg := config.Config{
		Retriever: config.RetrieverConfig{
			WindowDefault: "24h", KFinalDefault: 5,
			AutoExpandWindow: true, RelaxFiltersOnEmpty: true, FallbackRerankOffOnEmpty: true,
		},
		Budget: config.BudgetConfig{MaxTokensPerCommand: 8192, MaxCostCentsPerCommand: 50, MaxDurationSec: 20},
	}
	b := New(r, cfg)

	c, errResp := b.Build(context.Background(), RequestArgs{
		RawCommand: "/trends",
		Args:       map[string]string{"query": "xenial zephyr quokka migration lawsuit", "window": "6h"},
	})
	if errResp == nil {
		t.Fatalf("expected a NO_DATA error response, got context %+v", c)
	}
	if errResp.Code != "NO_DATA" {
		t.Fatalf("expected NO_DATA, got %s", errResp.Code)
	}
}

func TestParseArgs_RejectsInvalidWindow(t *testing.T) {
	if _, err := parseArgs(map[string]string{"window": "9h"}); err == nil {
		t.Fatalf("expected an error for an invalid window token")
	}
}

func TestLadderIndex_ResolvesEquivalentDurations(t *testing.T) {
	if ladderIndex("1d") != ladderIndex("24h") {
		t.Fatalf("expected 1d and 24h to resolve to the same ladder rung")
	}
}
