package pipeline

import (
	"strings"
	"testing"

	"newsbrief/internal/agents"
	"newsbrief/internal/contextbuilder"
	"newsbrief/internal/model"
)

func sampleDocs(n int) []model.Document {
	docs := make([]model.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, model.NewDocument(
			"art-"+string(rune('a'+i)), "Title", "https://example.com/a", "2026-07-29", "en", 1.0, "snippet",
		))
	}
	return docs
}

func TestFormatBackfillsEvidenceRefs(t *testing.T) {
	c := contextbuilder.Context{Command: "analyze_sentiment", Docs: sampleDocs(3)}
	results := map[string]any{
		"sentiment": agents.SentimentResult{Overall: 0.5, Aspects: []agents.AspectSentiment{{Aspect: "product", Score: 0.3}}},
	}
	resp := format(c, results)
	if len(resp.Insights) == 0 {
		t.Fatalf("expected insights from sentiment aspects")
	}
	for i, ins := range resp.Insights {
		if len(ins.EvidenceRefs) == 0 {
			t.Fatalf("insight[%d] has no evidence_refs after formatting", i)
		}
	}
}

func TestFormatForecastKeepsOwnEvidenceRefs(t *testing.T) {
	c := contextbuilder.Context{Command: "predict_trends", Docs: sampleDocs(1)}
	want := []model.EvidenceRef{{ArticleID: "art-a", URL: "https://example.com/a", Date: "2026-07-29"}}
	results := map[string]any{
		"trend_forecaster": agents.TrendForecastResult{
			Direction: "up",
			Drivers:   []agents.TrendDriver{{Text: "driver one", EvidenceRefs: want}},
		},
	}
	resp := format(c, results)
	if len(resp.Insights) != 1 || len(resp.Insights[0].EvidenceRefs) != 1 {
		t.Fatalf("expected forecaster's own evidence_refs to survive formatting, got %+v", resp.Insights)
	}
	if resp.Insights[0].EvidenceRefs[0].ArticleID != "art-a" {
		t.Fatalf("backfill clobbered the driver's real evidence_ref: %+v", resp.Insights[0].EvidenceRefs)
	}
}

func TestFormatMemoryOpsEmitsNoInsights(t *testing.T) {
	c := contextbuilder.Context{Command: "memory_recall"}
	results := map[string]any{
		"memory_ops": agents.MemoryOpsResult{Operation: "recall", Recalled: []model.MemoryRecord{{}}},
	}
	resp := format(c, results)
	if len(resp.Insights) != 0 {
		t.Fatalf("memory ops must never emit insights (no documents to cite), got %+v", resp.Insights)
	}
}

func TestTruncateTLDRCapsLength(t *testing.T) {
	long := strings.Repeat("x", maxTLDRChars+50)
	got := truncateTLDR(long)
	if len(got) > maxTLDRChars {
		t.Fatalf("truncateTLDR produced %d chars, want <= %d", len(got), maxTLDRChars)
	}
}

func TestFormatRAGTruncatesLongAnswer(t *testing.T) {
	c := contextbuilder.Context{Command: "ask", Docs: sampleDocs(1)}
	results := map[string]any{
		"agentic_rag": agents.AgenticRAGResult{Answer: strings.Repeat("word ", 100)},
	}
	resp := format(c, results)
	if len(resp.TLDR) > maxTLDRChars {
		t.Fatalf("formatRAG's tldr exceeds the validator's length cap: %d chars", len(resp.TLDR))
	}
}

func TestTrimCompetitorOverlapCapsRows(t *testing.T) {
	overlap := map[string]map[string]float64{}
	for _, d := range []string{"a.com", "b.com", "c.com", "d.com", "e.com", "f.com", "g.com"} {
		overlap[d] = map[string]float64{"x.com": 0.5}
	}
	res := agents.CompetitorNewsResult{Domains: []string{"a.com"}, Overlap: overlap}
	trimmed, ok := trimCompetitorOverlap(res).(agents.CompetitorNewsResult)
	if !ok {
		t.Fatalf("expected CompetitorNewsResult back")
	}
	if len(trimmed.Overlap) != maxEvidenceCards {
		t.Fatalf("expected overlap trimmed to %d rows, got %d", maxEvidenceCards, len(trimmed.Overlap))
	}
}

func TestAssertRetrievalRequiresDocsExceptSkipCommands(t *testing.T) {
	if err := assertRetrieval(contextbuilder.Context{Command: "memory_recall"}); err != nil {
		t.Fatalf("memory_recall must not require docs: %v", err)
	}
	if err := assertRetrieval(contextbuilder.Context{Command: "synthesize"}); err == nil {
		t.Fatalf("synthesize now retrieves and should require docs when none were found")
	}
	if err := assertRetrieval(contextbuilder.Context{Command: "synthesize", Docs: sampleDocs(1)}); err != nil {
		t.Fatalf("synthesize with docs should pass: %v", err)
	}
}
