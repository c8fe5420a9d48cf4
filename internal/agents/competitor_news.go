package agents

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"newsbrief/internal/model"
)

// CompetitorNews extracts the publishing domains present in the retrieved
// documents, scores pairwise topic-term overlap with Jaccard similarity,
// classifies each domain's coverage stance, and reports topics covered by
// only one domain as gaps.
type CompetitorNews struct{}

func (CompetitorNews) Name() string { return "competitor_news" }

var tokenRe = regexp.MustCompile(`[a-zA-Z0-9]+`)

func (CompetitorNews) Run(_ context.Context, in Input) (any, error) {
	domainDocs := groupByDomain(in.Docs)
	if requested, ok := in.Params["domains"].([]string); ok && len(requested) > 0 {
		filtered := make(map[string][]model.Document, len(requested))
		for _, d := range requested {
			if docs, ok := domainDocs[d]; ok {
				filtered[d] = docs
			}
		}
		domainDocs = filtered
	}
	if len(domainDocs) == 0 {
		return CompetitorNewsResult{}, nil
	}

	domains := make([]string, 0, len(domainDocs))
	termSets := make(map[string]map[string]struct{}, len(domainDocs))
	for d, docs := range domainDocs {
		domains = append(domains, d)
		termSets[d] = termSet(docs)
	}
	sort.Strings(domains)

	overlap := make(map[string]map[string]float64, len(domains))
	for _, a := range domains {
		overlap[a] = make(map[string]float64, len(domains))
		for _, b := range domains {
			if a == b {
				overlap[a][b] = 1
				continue
			}
			overlap[a][b] = jaccard(termSets[a], termSets[b])
		}
	}

	positioning := make(map[string]string, len(domains))
	for _, d := range domains {
		positioning[d] = stanceOf(len(domainDocs[d]), domainDocs)
	}

	gaps := coverageGaps(domains, termSets)

	return CompetitorNewsResult{
		Domains:     domains,
		Overlap:     overlap,
		Positioning: positioning,
		Gaps:        gaps,
	}, nil
}

func groupByDomain(docs []model.Document) map[string][]model.Document {
	out := make(map[string][]model.Document)
	for _, d := range docs {
		dom := hostOf(d.URL)
		if dom == "" {
			continue
		}
		out[dom] = append(out[dom], d)
	}
	return out
}

func hostOf(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	if i := strings.IndexAny(u, "/?#"); i != -1 {
		u = u[:i]
	}
	u = strings.ToLower(u)
	return strings.TrimPrefix(u, "www.")
}

// termSet tokenizes a domain's titles and snippets into a lowercase term
// set for Jaccard comparison, plain Go string processing in the same
// idiom as the rest of the module's tokenization helpers.
func termSet(docs []model.Document) map[string]struct{} {
	set := make(map[string]struct{})
	for _, d := range docs {
		for _, tok := range tokenRe.FindAllString(strings.ToLower(d.Title+" "+d.Snippet), -1) {
			if len(tok) < 3 {
				continue
			}
			set[tok] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// stanceOf classifies a domain's coverage stance by its document count
// relative to competitors: most-covered -> leader, near the median ->
// fast_follower, sparse -> niche.
func stanceOf(count int, all map[string][]model.Document) string {
	max := 0
	for _, docs := range all {
		if len(docs) > max {
			max = len(docs)
		}
	}
	if max == 0 {
		return "niche"
	}
	ratio := float64(count) / float64(max)
	switch {
	case ratio >= 0.8:
		return "leader"
	case ratio >= 0.4:
		return "fast_follower"
	default:
		return "niche"
	}
}

// coverageGaps reports terms that appear in exactly one domain's term
// set and in no other, sorted alphabetically and capped at the first 20.
func coverageGaps(domains []string, termSets map[string]map[string]struct{}) []string {
	ownerCount := make(map[string]int)
	for _, d := range domains {
		for t := range termSets[d] {
			ownerCount[t]++
		}
	}
	var gaps []string
	for t, n := range ownerCount {
		if n == 1 {
			gaps = append(gaps, t)
		}
	}
	sort.Strings(gaps)
	const maxGaps = 20
	if len(gaps) > maxGaps {
		gaps = gaps[:maxGaps]
	}
	return gaps
}
