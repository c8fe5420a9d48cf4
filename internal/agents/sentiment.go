package agents

import (
	"context"
	"fmt"

	"newsbrief/internal/llm"
	"newsbrief/internal/model"
)

// Sentiment scores overall and per-aspect sentiment plus an emotion
// distribution over the retrieved documents. `Overall` is never taken
// from the model directly: it is a length-weighted mean of the
// per-document scores the model returns, computed in Go, so the same
// document set always yields the same overall score.
type Sentiment struct{}

func (Sentiment) Name() string { return "sentiment" }

var sentimentSchema = llm.ToolSchema{
	Name:        "sentiment_result",
	Description: "Per-document sentiment with an emotion distribution and aspect breakdown",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"doc_scores": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"article_id": map[string]any{"type": "string"},
						"score":      map[string]any{"type": "number"},
					},
					"required": []string{"article_id", "score"},
				},
			},
			"emotions": map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "number"}},
			"aspects": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"aspect": map[string]any{"type": "string"},
						"score":  map[string]any{"type": "number"},
					},
					"required": []string{"aspect", "score"},
				},
			},
		},
		"required": []string{"doc_scores", "emotions", "aspects"},
	},
}

func (Sentiment) Run(ctx context.Context, in Input) (any, error) {
	if len(in.Docs) == 0 {
		return SentimentResult{Emotions: map[string]float64{}}, nil
	}
	system := "Score sentiment in [-1,1] for EACH document below individually (one entry per " +
		"article_id in doc_scores); do not average them yourself. Give up to 5 named emotions " +
		"(e.g. anger, fear, optimism, relief, frustration) whose values sum to at most 1. " +
		"Also score sentiment per notable aspect/entity mentioned. Respond with JSON only."
	user := docsContext(in.Docs, 30)

	out, _, err := in.Router.CallStructured(ctx, in.Route, system, user, 1200, sentimentSchema, in.Ledger)
	if err != nil {
		return nil, fmt.Errorf("sentiment: %w", err)
	}

	var parsed struct {
		DocScores []struct {
			ArticleID string  `json:"article_id"`
			Score     float64 `json:"score"`
		} `json:"doc_scores"`
		Emotions map[string]float64  `json:"emotions"`
		Aspects  []AspectSentiment   `json:"aspects"`
	}
	if err := remarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("sentiment: decode response: %w", err)
	}

	result := SentimentResult{
		Overall:  lengthWeightedMean(in.Docs, parsed.DocScores),
		Emotions: parsed.Emotions,
		Aspects:  parsed.Aspects,
	}
	result = clampSentiment(result)
	return result, nil
}

// lengthWeightedMean implements spec.md §4.5's deterministic rule: overall
// sentiment is a length-weighted mean of per-document scores, not a value
// the model invents for the batch as a whole. Documents the model didn't
// return a score for are excluded rather than defaulted to neutral, so a
// partial response doesn't silently drag the mean toward zero.
func lengthWeightedMean(docs []model.Document, scores []struct {
	ArticleID string  `json:"article_id"`
	Score     float64 `json:"score"`
}) float64 {
	weight := make(map[string]float64, len(docs))
	for _, d := range docs {
		w := float64(len(d.Text))
		if w == 0 {
			w = float64(len(d.Snippet))
		}
		if w == 0 {
			w = 1
		}
		weight[d.ArticleID] = w
	}

	var weightedSum, totalWeight float64
	for _, s := range scores {
		w, ok := weight[s.ArticleID]
		if !ok {
			continue
		}
		weightedSum += s.Score * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// clampSentiment enforces spec.md §4.5's invariant that emotions sum to
// at most 1, scaling down proportionally if the model overshoots.
func clampSentiment(r SentimentResult) SentimentResult {
	if r.Overall > 1 {
		r.Overall = 1
	}
	if r.Overall < -1 {
		r.Overall = -1
	}
	var sum float64
	for _, v := range r.Emotions {
		sum += v
	}
	if sum > 1 && sum > 0 {
		for k, v := range r.Emotions {
			r.Emotions[k] = v / sum
		}
	}
	return r
}
