package retrieve

import (
	"context"
	"testing"
	"time"

	"newsbrief/internal/persistence/databases"
)

func TestFetchCandidates_Memory(t *testing.T) {
	ctx := context.Background()
	search := databases.NewMemorySearch()
	vector := databases.NewMemoryVector()

	_ = search.Index(ctx, "a1", "eurozone inflation cools in july", map[string]string{
		"article_id": "a1", "published_date": "2026-07-20", "language": "en", "source": "reuters.com",
	})
	_ = search.Index(ctx, "a2", "completely unrelated sports recap", map[string]string{
		"article_id": "a2", "published_date": "2026-07-20", "language": "en", "source": "reuters.com",
	})
	_ = vector.Upsert(ctx, "a1", []float32{1, 0}, map[string]string{
		"article_id": "a1", "published_date": "2026-07-20", "language": "en", "source": "reuters.com",
	})

	plan := buildQueryPlan(ctx, "inflation", Window{}, "en", nil)
	fts, vecs, diag, err := fetchCandidates(ctx, search, vector, plan, []float32{1, 0})
	if err != nil {
		t.Fatalf("fetchCandidates error: %v", err)
	}
	if len(fts) == 0 {
		t.Fatalf("expected fts candidates")
	}
	if len(vecs) == 0 {
		t.Fatalf("expected vector candidates")
	}
	if diag.FTSCount == 0 || diag.VectorCount == 0 {
		t.Fatalf("expected non-zero diagnostics, got %+v", diag)
	}
}

func TestFetchCandidates_FiltersByWindowAndSource(t *testing.T) {
	ctx := context.Background()
	search := databases.NewMemorySearch()
	_ = search.Index(ctx, "old", "inflation report", map[string]string{
		"article_id": "old", "published_date": "2020-01-01", "language": "en", "source": "reuters.com",
	})
	_ = search.Index(ctx, "new", "inflation report", map[string]string{
		"article_id": "new", "published_date": "2026-07-20", "language": "en", "source": "reuters.com",
	})
	_ = search.Index(ctx, "otherSource", "inflation report", map[string]string{
		"article_id": "otherSource", "published_date": "2026-07-20", "language": "en", "source": "unknown.example",
	})

	window := Window{Start: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)}
	plan := buildQueryPlan(ctx, "inflation", window, "en", []string{"reuters.com"})
	fts, _, _, err := fetchCandidates(ctx, search, nil, plan, nil)
	if err != nil {
		t.Fatalf("fetchCandidates error: %v", err)
	}
	for _, r := range fts {
		if r.ID == "old" || r.ID == "otherSource" {
			t.Fatalf("expected filtered-out result %q to be excluded, got %+v", r.ID, fts)
		}
	}
}
