package agents

import (
	"context"
	"math"
	"testing"

	"newsbrief/internal/llm"
)

func TestSentiment_ClampsEmotionsSummingOverOne(t *testing.T) {
	provider := fakeProvider{
		name: "fake",
		resp: llm.Response{
			JSON: map[string]any{
				"doc_scores": []any{
					map[string]any{"article_id": "a1", "score": -0.3},
				},
				"emotions": map[string]any{
					"anger": 0.7,
					"fear":  0.6,
				},
				"aspects": []any{},
			},
			Usage: llm.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
		},
	}
	in := Input{Docs: sampleDocs(), Route: testRoute(), Router: testRouter(provider), Ledger: testLedger()}

	out, err := Sentiment{}.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(SentimentResult)
	var sum float64
	for _, v := range result.Emotions {
		sum += v
	}
	if sum > 1.0001 {
		t.Fatalf("expected emotions to sum to at most 1, got %v (%v)", sum, result.Emotions)
	}
}

// Overall must be the length-weighted mean of the per-document scores the
// model returns, not a value it invents for the batch as a whole.
func TestSentiment_OverallIsLengthWeightedMean(t *testing.T) {
	docs := sampleDocs() // a1: 37-char snippet, a2: 42-char snippet
	provider := fakeProvider{
		name: "fake",
		resp: llm.Response{
			JSON: map[string]any{
				"doc_scores": []any{
					map[string]any{"article_id": docs[0].ArticleID, "score": -1.0},
					map[string]any{"article_id": docs[1].ArticleID, "score": 0.0},
				},
				"emotions": map[string]any{},
				"aspects":  []any{},
			},
			Usage: llm.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
		},
	}
	in := Input{Docs: docs, Route: testRoute(), Router: testRouter(provider), Ledger: testLedger()}

	out, err := Sentiment{}.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(SentimentResult)

	w1 := float64(len(docs[0].Snippet))
	w2 := float64(len(docs[1].Snippet))
	want := (-1.0*w1 + 0.0*w2) / (w1 + w2)
	if math.Abs(result.Overall-want) > 1e-9 {
		t.Fatalf("Overall = %v, want length-weighted mean %v", result.Overall, want)
	}
}

// A doc_score for an article_id absent from the retrieved set must be
// ignored rather than silently pulling the mean toward it.
func TestSentiment_IgnoresUnknownArticleIDInDocScores(t *testing.T) {
	docs := sampleDocs()
	provider := fakeProvider{
		name: "fake",
		resp: llm.Response{
			JSON: map[string]any{
				"doc_scores": []any{
					map[string]any{"article_id": docs[0].ArticleID, "score": 1.0},
					map[string]any{"article_id": "not-in-the-corpus", "score": -1.0},
				},
				"emotions": map[string]any{},
				"aspects":  []any{},
			},
			Usage: llm.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
		},
	}
	in := Input{Docs: docs, Route: testRoute(), Router: testRouter(provider), Ledger: testLedger()}

	out, err := Sentiment{}.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(SentimentResult)
	if math.Abs(result.Overall-1.0) > 1e-9 {
		t.Fatalf("Overall = %v, want 1.0 (only the known article_id should count)", result.Overall)
	}
}
