package retrieve

import (
	"sort"

	"newsbrief/internal/model"
	"newsbrief/internal/persistence/databases"
)

// krrf is the Reciprocal Rank Fusion constant fixed by spec.md §4.3 step 3.
const krrf = 60

// fusedCandidate is one document after RRF, before rerank/dedup/truncation.
type fusedCandidate struct {
	ArticleID     string
	Title         string
	URL           string
	PublishedDate string
	Language      string
	Snippet       string
	Text          string
	RRFScore      float64
}

// fuseRRF combines the lexical and vector candidate lists by Reciprocal
// Rank Fusion (spec.md §4.3 step 3): every document appearing in either
// list contributes 1/(krrf+rank) per list it appears in; absence from a
// list (index not available, or filtered out) contributes 0 — the
// "fallback" spec.md §4.3 describes as "treat rank as +∞".
func fuseRRF(fts []databases.SearchResult, vecs []databases.VectorResult) []fusedCandidate {
	byID := make(map[string]*fusedCandidate, len(fts)+len(vecs))
	order := make([]string, 0, len(fts)+len(vecs))

	get := func(id string, md map[string]string) *fusedCandidate {
		c, ok := byID[id]
		if ok {
			return c
		}
		c = &fusedCandidate{
			ArticleID:     articleIDOf(id, md),
			Title:         md["title"],
			URL:           md["url"],
			PublishedDate: md["published_date"],
			Language:      md["language"],
		}
		byID[id] = c
		order = append(order, id)
		return c
	}

	for rank, r := range fts {
		c := get(r.ID, r.Metadata)
		c.RRFScore += 1.0 / float64(krrf+rank+1)
		if c.Snippet == "" {
			c.Snippet = r.Snippet
		}
		if c.Text == "" {
			c.Text = r.Text
		}
	}
	for rank, r := range vecs {
		c := get(r.ID, r.Metadata)
		c.RRFScore += 1.0 / float64(krrf+rank+1)
	}

	out := make([]fusedCandidate, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}

	sortFused(out)
	return out
}

// sortFused applies spec.md §4.3's deterministic tie-break: RRF score
// descending, then more recent published_date, then shorter snippet, then
// lexicographic article_id.
func sortFused(cands []fusedCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.RRFScore != b.RRFScore {
			return a.RRFScore > b.RRFScore
		}
		if a.PublishedDate != b.PublishedDate {
			return a.PublishedDate > b.PublishedDate
		}
		if len(a.Snippet) != len(b.Snippet) {
			return len(a.Snippet) < len(b.Snippet)
		}
		return a.ArticleID < b.ArticleID
	})
}

// dedupeByArticleID keeps the highest-ranked occurrence of each article_id
// (spec.md §4.3 step 6). cands must already be sorted by rank.
func dedupeByArticleID(cands []fusedCandidate) []fusedCandidate {
	seen := make(map[string]struct{}, len(cands))
	out := make([]fusedCandidate, 0, len(cands))
	for _, c := range cands {
		if _, ok := seen[c.ArticleID]; ok {
			continue
		}
		seen[c.ArticleID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func toDocuments(cands []fusedCandidate) []model.Document {
	out := make([]model.Document, 0, len(cands))
	for _, c := range cands {
		out = append(out, model.NewDocument(c.ArticleID, c.Title, c.URL, c.PublishedDate, c.Language, c.RRFScore, c.Snippet))
	}
	return out
}

func articleIDOf(id string, md map[string]string) string {
	if aid := md["article_id"]; aid != "" {
		return aid
	}
	return id
}
