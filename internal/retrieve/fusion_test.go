package retrieve

import (
	"testing"

	"newsbrief/internal/persistence/databases"
)

func TestFuseRRF_CombinesAndSortsDescending(t *testing.T) {
	fts := []databases.SearchResult{
		{ID: "a1", Metadata: map[string]string{"article_id": "a1", "published_date": "2026-07-01"}},
		{ID: "a2", Metadata: map[string]string{"article_id": "a2", "published_date": "2026-07-02"}},
	}
	vecs := []databases.VectorResult{
		{ID: "a2", Metadata: map[string]string{"article_id": "a2", "published_date": "2026-07-02"}},
		{ID: "a1", Metadata: map[string]string{"article_id": "a1", "published_date": "2026-07-01"}},
	}
	fused := fuseRRF(fts, vecs)
	if len(fused) != 2 {
		t.Fatalf("expected 2 fused candidates, got %d", len(fused))
	}
	for i := 1; i < len(fused); i++ {
		if fused[i-1].RRFScore < fused[i].RRFScore {
			t.Fatalf("expected descending RRF order, got %v", fused)
		}
	}
}

func TestFuseRRF_TieBreakByRecencyThenSnippetThenID(t *testing.T) {
	// "old" is fts-only rank 0, "new" is vec-only rank 0: equal RRF scores.
	fts := []databases.SearchResult{
		{ID: "old", Snippet: "short", Metadata: map[string]string{"article_id": "old", "published_date": "2026-01-01"}},
	}
	vecs := []databases.VectorResult{
		{ID: "new", Metadata: map[string]string{"article_id": "new", "published_date": "2026-07-01"}},
	}
	fused := fuseRRF(fts, vecs)
	if fused[0].RRFScore != fused[1].RRFScore {
		t.Fatalf("expected tied RRF scores, got %+v", fused)
	}
	if fused[0].ArticleID != "new" {
		t.Fatalf("expected more recent article to win tie, got %q first", fused[0].ArticleID)
	}
}

func TestFuseRRF_TieBreakBySnippetLengthThenID(t *testing.T) {
	// "b" is fts-only rank 0, "a" is vec-only rank 0: equal RRF scores, same date.
	fts := []databases.SearchResult{
		{ID: "b", Snippet: "a longer snippet here", Metadata: map[string]string{"article_id": "b", "published_date": "2026-07-01"}},
	}
	vecs := []databases.VectorResult{
		{ID: "a", Metadata: map[string]string{"article_id": "a", "published_date": "2026-07-01"}},
	}
	fused := fuseRRF(fts, vecs)
	if fused[0].RRFScore != fused[1].RRFScore {
		t.Fatalf("expected tied RRF scores, got %+v", fused)
	}
	if fused[0].ArticleID != "a" {
		t.Fatalf("expected shorter-snippet article to win tie, got %q first", fused[0].ArticleID)
	}
}

func TestDedupeByArticleID_KeepsHighestRanked(t *testing.T) {
	cands := []fusedCandidate{
		{ArticleID: "x", RRFScore: 0.9},
		{ArticleID: "y", RRFScore: 0.5},
		{ArticleID: "x", RRFScore: 0.1},
	}
	out := dedupeByArticleID(cands)
	if len(out) != 2 {
		t.Fatalf("expected 2 deduped candidates, got %d", len(out))
	}
	if out[0].ArticleID != "x" || out[0].RRFScore != 0.9 {
		t.Fatalf("expected highest-ranked x to survive, got %+v", out[0])
	}
}
