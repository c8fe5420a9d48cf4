package agents

import (
	"context"
	"fmt"
	"sort"

	"newsbrief/internal/llm"
	"newsbrief/internal/model"
)

// Topics clusters the retrieved documents into 3-8 labeled topics with a
// rising/falling/stable trend each. The model supplies the cluster label,
// terms, and membership; trend is never taken from the model — it is
// computed in Go from document counts, mirroring trend_forecaster.go's
// bucket-then-classify idiom, so the same document set always yields the
// same trend label.
type Topics struct{}

func (Topics) Name() string { return "topics" }

var topicsSchema = llm.ToolSchema{
	Name:        "topics_result",
	Description: "Topic clusters over a set of news documents",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topics": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"label":       map[string]any{"type": "string"},
						"terms":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"article_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required": []string{"label", "terms", "article_ids"},
				},
			},
		},
		"required": []string{"topics"},
	},
}

func (Topics) Run(ctx context.Context, in Input) (any, error) {
	if len(in.Docs) == 0 {
		return TopicsResult{}, nil
	}
	system := "Cluster the documents below into 3 to 8 topics. Give each a short label, its " +
		"characteristic terms, and the article_id of every document it covers. Do not judge " +
		"whether a topic is rising or falling yourself. Respond with JSON only."
	user := docsContext(in.Docs, 30)

	out, _, err := in.Router.CallStructured(ctx, in.Route, system, user, 1500, topicsSchema, in.Ledger)
	if err != nil {
		return nil, fmt.Errorf("topics: %w", err)
	}

	var parsed struct {
		Topics []struct {
			Label      string   `json:"label"`
			Terms      []string `json:"terms"`
			ArticleIDs []string `json:"article_ids"`
		} `json:"topics"`
	}
	if err := remarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("topics: decode response: %w", err)
	}

	firstThird, lastThird := windowThirds(in.Docs)
	result := TopicsResult{Topics: make([]Topic, 0, len(parsed.Topics))}
	for _, t := range parsed.Topics {
		result.Topics = append(result.Topics, Topic{
			Label: t.Label,
			Terms: t.Terms,
			Size:  len(t.ArticleIDs),
			Trend: classifyTrend(t.ArticleIDs, firstThird, lastThird),
		})
	}
	return result, nil
}

// windowThirds sorts docs by published date and splits them into the
// first and last third, implementing spec.md §4.5's "first vs last third
// of the window" rule at the document-count granularity.
func windowThirds(docs []model.Document) (first, last map[string]bool) {
	sorted := make([]model.Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PublishedDate < sorted[j].PublishedDate })

	n := len(sorted)
	third := n / 3
	if third == 0 {
		third = n
	}
	first = make(map[string]bool, third)
	last = make(map[string]bool, third)
	for _, d := range sorted[:third] {
		first[d.ArticleID] = true
	}
	for _, d := range sorted[n-third:] {
		last[d.ArticleID] = true
	}
	return first, last
}

// classifyTrend compares how many of a topic's documents fall in the
// window's first third versus its last third: rising on a +20% increase,
// falling on a -20% decrease, stable otherwise.
func classifyTrend(articleIDs []string, firstThird, lastThird map[string]bool) string {
	var firstCount, lastCount int
	for _, id := range articleIDs {
		if firstThird[id] {
			firstCount++
		}
		if lastThird[id] {
			lastCount++
		}
	}
	switch {
	case firstCount == 0 && lastCount == 0:
		return "stable"
	case firstCount == 0:
		return "rising"
	case lastCount == 0:
		return "falling"
	}
	ratio := float64(lastCount) / float64(firstCount)
	switch {
	case ratio >= 1.2:
		return "rising"
	case ratio <= 0.8:
		return "falling"
	default:
		return "stable"
	}
}
