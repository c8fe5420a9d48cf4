package agents

import (
	"context"
	"testing"

	"newsbrief/internal/llm"
	"newsbrief/internal/model"
)

func sampleDocs() []model.Document {
	return []model.Document{
		model.NewDocument("a1", "Fed signals rate pause", "https://reuters.com/a1", "2026-07-28", "en", 0.9, "The Federal Reserve signaled a pause."),
		model.NewDocument("a2", "Inflation cools in July", "https://bbc.com/a2", "2026-07-27", "en", 0.8, "Inflation data came in below expectations."),
	}
}

func TestKeyphrase_ParsesStructuredResponse(t *testing.T) {
	provider := fakeProvider{
		name: "fake",
		resp: llm.Response{
			JSON: map[string]any{
				"phrases": []any{
					map[string]any{"phrase": "rate pause", "score": 0.9, "ngram": 2, "variants": []any{"pause on rates"}},
				},
			},
			Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
		},
	}
	in := Input{
		Docs:   sampleDocs(),
		Route:  testRoute(),
		Router: testRouter(provider),
		Ledger: testLedger(),
	}

	out, err := Keyphrase{}.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, ok := out.(KeyphraseResult)
	if !ok {
		t.Fatalf("expected KeyphraseResult, got %T", out)
	}
	if len(result.Phrases) != 1 || result.Phrases[0].Phrase != "rate pause" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestKeyphrase_EmptyDocsShortCircuits(t *testing.T) {
	in := Input{Router: testRouter(fakeProvider{name: "fake"}), Route: testRoute(), Ledger: testLedger()}
	out, err := Keyphrase{}.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result := out.(KeyphraseResult); len(result.Phrases) != 0 {
		t.Fatalf("expected no phrases for empty docs, got %+v", result)
	}
}
