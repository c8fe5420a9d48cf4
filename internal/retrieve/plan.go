// Package retrieve implements the Retriever (spec.md §4.3): hybrid
// full-text + vector candidate fetch, Reciprocal Rank Fusion, optional
// rerank, dedup, and a Redis-backed result cache. Grounded on the
// teacher's internal/rag/retrieve package, adapted from a generic
// RetrievedItem/chunk shape to model.Document and spec.md's own
// tie-break and cache-invalidation rules.
package retrieve

import (
	"context"
	"strings"
	"time"
)

// maxFilterEntries bounds the number of source-domain filters accepted per
// request, mirroring the teacher's defensive cap against unbounded allocation.
const maxFilterEntries = 1000

// Window is the [start, end] time range a request's documents must fall
// within; End is normally "now" at request time.
type Window struct {
	Start time.Time
	End   time.Time
}

// queryPlan is the normalized, pre-filtered retrieval plan for one request.
type queryPlan struct {
	Query    string
	Language string
	Window   Window
	Sources  map[string]struct{}
	Filters  map[string]string
}

// buildQueryPlan normalizes the query and assembles the pre-filter set
// (spec.md §4.3 step 1): window, language (skipped when "auto"), and
// sources domain list (skipped when empty).
func buildQueryPlan(ctx context.Context, query string, window Window, language string, sources []string) queryPlan {
	_ = ctx
	nq := normalizeQuery(query)

	filters := make(map[string]string, maxFilterEntries)
	if language != "" && language != "auto" {
		filters["language"] = language
	}

	var srcSet map[string]struct{}
	if len(sources) > 0 {
		srcSet = make(map[string]struct{}, len(sources))
		added := 0
		for _, s := range sources {
			if added >= maxFilterEntries {
				break
			}
			if s == "" {
				continue
			}
			srcSet[s] = struct{}{}
			added++
		}
	}

	return queryPlan{
		Query:    nq,
		Language: language,
		Window:   window,
		Sources:  srcSet,
		Filters:  filters,
	}
}

func normalizeQuery(q string) string {
	s := strings.TrimSpace(q)
	var b strings.Builder
	prevSpace := false
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' {
			r = ' '
		}
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
