package agents

import (
	"context"
	"testing"

	"newsbrief/internal/llm"
	"newsbrief/internal/model"
)

// windowDocs builds 9 documents spread evenly across 9 days so the first
// and last third (3 docs each) are unambiguous.
func windowDocs() []model.Document {
	docs := make([]model.Document, 0, 9)
	dates := []string{
		"2026-07-20", "2026-07-21", "2026-07-22", // first third
		"2026-07-23", "2026-07-24", "2026-07-25", // middle third
		"2026-07-26", "2026-07-27", "2026-07-28", // last third
	}
	for i, d := range dates {
		id := "a" + string(rune('0'+i))
		docs = append(docs, model.NewDocument(id, "t", "https://example.com/"+id, d, "en", 0.5, "snippet"))
	}
	return docs
}

func TestTopics_TrendRisingWhenLastThirdCountExceedsFirstByTwentyPercent(t *testing.T) {
	docs := windowDocs()
	// Topic mentioned in all 3 first-third docs and all 3 last-third docs
	// plus every middle doc: first=3, last=3 is a flat count, not a rise.
	// Bias it: only 1 mention in the first third, 3 in the last third.
	provider := fakeProvider{
		name: "fake",
		resp: llm.Response{
			JSON: map[string]any{
				"topics": []any{
					map[string]any{
						"label":       "rising topic",
						"terms":       []any{"x"},
						"article_ids": []any{docs[0].ArticleID, docs[6].ArticleID, docs[7].ArticleID, docs[8].ArticleID},
					},
				},
			},
			Usage: llm.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
		},
	}
	in := Input{Docs: docs, Route: testRoute(), Router: testRouter(provider), Ledger: testLedger()}

	out, err := Topics{}.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(TopicsResult)
	if len(result.Topics) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(result.Topics))
	}
	if result.Topics[0].Trend != "rising" {
		t.Fatalf("expected rising trend, got %q", result.Topics[0].Trend)
	}
	if result.Topics[0].Size != 4 {
		t.Fatalf("expected size 4 (one per article_id), got %d", result.Topics[0].Size)
	}
}

func TestTopics_TrendFallingWhenFirstThirdCountExceedsLastByTwentyPercent(t *testing.T) {
	docs := windowDocs()
	provider := fakeProvider{
		name: "fake",
		resp: llm.Response{
			JSON: map[string]any{
				"topics": []any{
					map[string]any{
						"label":       "falling topic",
						"terms":       []any{"y"},
						"article_ids": []any{docs[0].ArticleID, docs[1].ArticleID, docs[2].ArticleID, docs[8].ArticleID},
					},
				},
			},
			Usage: llm.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
		},
	}
	in := Input{Docs: docs, Route: testRoute(), Router: testRouter(provider), Ledger: testLedger()}

	out, err := Topics{}.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(TopicsResult)
	if result.Topics[0].Trend != "falling" {
		t.Fatalf("expected falling trend, got %q", result.Topics[0].Trend)
	}
}

func TestTopics_TrendStableWhenCountsAreWithinTwentyPercent(t *testing.T) {
	docs := windowDocs()
	provider := fakeProvider{
		name: "fake",
		resp: llm.Response{
			JSON: map[string]any{
				"topics": []any{
					map[string]any{
						"label":       "stable topic",
						"terms":       []any{"z"},
						"article_ids": []any{docs[0].ArticleID, docs[8].ArticleID},
					},
				},
			},
			Usage: llm.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
		},
	}
	in := Input{Docs: docs, Route: testRoute(), Router: testRouter(provider), Ledger: testLedger()}

	out, err := Topics{}.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(TopicsResult)
	if result.Topics[0].Trend != "stable" {
		t.Fatalf("expected stable trend, got %q", result.Topics[0].Trend)
	}
}

func TestTopics_EmptyDocsReturnsEmptyResult(t *testing.T) {
	in := Input{Docs: nil, Route: testRoute(), Router: testRouter(fakeProvider{name: "fake"}), Ledger: testLedger()}
	out, err := Topics{}.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.(TopicsResult).Topics) != 0 {
		t.Fatalf("expected no topics for an empty document set")
	}
}
