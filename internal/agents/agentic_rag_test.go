package agents

import (
	"context"
	"testing"

	"newsbrief/internal/llm"
)

func TestAgenticRAG_StopsEarlyWhenSufficient(t *testing.T) {
	provider := fakeProvider{
		name: "fake",
		resp: llm.Response{
			Text: "The Fed held rates steady this week [a1].",
			JSON: map[string]any{
				"sufficient": true,
				"reason":     "draft directly answers the query with cited evidence",
			},
		},
	}
	in := Input{
		Docs:   sampleDocs(),
		Params: map[string]any{"query": "What did the Fed decide?", "depth": 3},
		Route:  testRoute(), Router: testRouter(provider), Ledger: testLedger(),
	}

	out, err := AgenticRAG{}.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(AgenticRAGResult)
	if len(result.Steps) != 1 {
		t.Fatalf("expected exactly 1 step since the first self-check reports sufficient, got %d", len(result.Steps))
	}
	if result.Answer == "" {
		t.Fatalf("expected a non-empty answer")
	}
}

func TestAgenticRAG_EmptyQueryErrors(t *testing.T) {
	in := Input{Docs: sampleDocs(), Params: map[string]any{}, Route: testRoute(), Ledger: testLedger()}
	if _, err := (AgenticRAG{}).Run(context.Background(), in); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestAgenticRAG_StopsWithoutReformulationWhenNoRetriever(t *testing.T) {
	provider := fakeProvider{
		name: "fake",
		resp: llm.Response{
			Text: "Partial answer, more evidence needed.",
			JSON: map[string]any{
				"sufficient":         false,
				"reason":             "missing corroborating sources",
				"reformulated_query": "Fed rate decision reaction",
			},
		},
	}
	in := Input{
		Docs:   sampleDocs(),
		Params: map[string]any{"query": "What did the Fed decide?", "depth": 3},
		Route:  testRoute(), Router: testRouter(provider), Ledger: testLedger(),
	}

	out, err := AgenticRAG{}.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(AgenticRAGResult)
	if len(result.Steps) != 1 {
		t.Fatalf("expected the loop to stop after 1 step since in.Retriever is nil, got %d", len(result.Steps))
	}
}
