package retrieve

import (
	"context"
	"time"

	"newsbrief/internal/persistence/databases"
)

// candidateK is the per-leg candidate count pulled before fusion
// (spec.md §4.3 step 2: "each returning its top 30").
const candidateK = 30

// sourceDiagnostics carries per-leg latency/count. Retrieve records the
// latencies as histograms; the counts are not recorded.
type sourceDiagnostics struct {
	FTSLatency    time.Duration
	VectorLatency time.Duration
	FTSCount      int
	VectorCount   int
}

// fetchCandidates queries the lexical and vector legs concurrently
// (spec.md §5: "the Retriever runs its lexical and vector searches as two
// concurrent tasks"), then applies the window/language/sources pre-filter
// that doesn't already live in the backend query itself.
func fetchCandidates(ctx context.Context, search databases.FullTextSearch, vector databases.VectorStore, plan queryPlan, queryEmbedding []float32) (fts []databases.SearchResult, vecs []databases.VectorResult, diag sourceDiagnostics, err error) {
	type ftsOut struct {
		res []databases.SearchResult
		dur time.Duration
		err error
	}
	type vecOut struct {
		res []databases.VectorResult
		dur time.Duration
		err error
	}

	ftsCh := make(chan ftsOut, 1)
	vecCh := make(chan vecOut, 1)

	if search != nil {
		go func() {
			t0 := time.Now()
			res, e := search.Search(ctx, plan.Query, candidateK)
			ftsCh <- ftsOut{res: res, dur: time.Since(t0), err: e}
		}()
	} else {
		ftsCh <- ftsOut{}
	}

	if vector != nil && len(queryEmbedding) > 0 {
		go func() {
			t0 := time.Now()
			res, e := vector.SimilaritySearch(ctx, queryEmbedding, candidateK, plan.Filters)
			vecCh <- vecOut{res: res, dur: time.Since(t0), err: e}
		}()
	} else {
		vecCh <- vecOut{}
	}

	fo := <-ftsCh
	vo := <-vecCh
	if fo.err != nil {
		return nil, nil, sourceDiagnostics{}, fo.err
	}
	if vo.err != nil {
		return nil, nil, sourceDiagnostics{}, vo.err
	}

	diag = sourceDiagnostics{
		FTSLatency:    fo.dur,
		VectorLatency: vo.dur,
		FTSCount:      len(fo.res),
		VectorCount:   len(vo.res),
	}
	return applyPreFilter(fo.res, plan), applyPreFilterVec(vo.res, plan), diag, nil
}

func applyPreFilter(in []databases.SearchResult, plan queryPlan) []databases.SearchResult {
	if !needsFilter(plan) {
		return in
	}
	out := make([]databases.SearchResult, 0, len(in))
	for _, r := range in {
		if passesFilter(r.Metadata, plan) {
			out = append(out, r)
		}
	}
	return out
}

func applyPreFilterVec(in []databases.VectorResult, plan queryPlan) []databases.VectorResult {
	if !needsFilter(plan) {
		return in
	}
	out := make([]databases.VectorResult, 0, len(in))
	for _, r := range in {
		if passesFilter(r.Metadata, plan) {
			out = append(out, r)
		}
	}
	return out
}

func needsFilter(plan queryPlan) bool {
	return plan.Language != "" && plan.Language != "auto" || len(plan.Sources) > 0 || !plan.Window.Start.IsZero() || !plan.Window.End.IsZero()
}

func passesFilter(md map[string]string, plan queryPlan) bool {
	if plan.Language != "" && plan.Language != "auto" {
		if md["language"] != plan.Language {
			return false
		}
	}
	if len(plan.Sources) > 0 {
		if _, ok := plan.Sources[md["source"]]; !ok {
			return false
		}
	}
	if !plan.Window.Start.IsZero() || !plan.Window.End.IsZero() {
		pd, ok := parsePublishedDate(md["published_date"])
		if !ok {
			return true // no date metadata: don't reject on window
		}
		if !plan.Window.Start.IsZero() && pd.Before(plan.Window.Start) {
			return false
		}
		if !plan.Window.End.IsZero() && pd.After(plan.Window.End) {
			return false
		}
	}
	return true
}

func parsePublishedDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
