package agents

import (
	"context"
	"testing"

	"newsbrief/internal/model"
)

func TestCompetitorNews_ComputesOverlapAndStance(t *testing.T) {
	docs := []model.Document{
		model.NewDocument("a1", "Fed rate decision looms", "https://reuters.com/a1", "2026-07-28", "en", 0.9, "central bank rate policy outlook"),
		model.NewDocument("a2", "Fed holds rates steady", "https://reuters.com/a2", "2026-07-28", "en", 0.9, "central bank rate policy decision"),
		model.NewDocument("a3", "Markets react to Fed", "https://bbc.com/a3", "2026-07-28", "en", 0.9, "stock market reaction investors"),
	}
	in := Input{Docs: docs}

	out, err := CompetitorNews{}.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := out.(CompetitorNewsResult)
	if len(result.Domains) != 2 {
		t.Fatalf("expected 2 domains, got %v", result.Domains)
	}
	if result.Positioning["reuters.com"] != "leader" {
		t.Fatalf("expected reuters.com to lead by volume, got %q", result.Positioning["reuters.com"])
	}
	if result.Overlap["reuters.com"]["bbc.com"] < 0 || result.Overlap["reuters.com"]["bbc.com"] > 1 {
		t.Fatalf("expected overlap in [0,1], got %v", result.Overlap["reuters.com"]["bbc.com"])
	}
}

func TestJaccard_IdenticalSetsIsOne(t *testing.T) {
	a := map[string]struct{}{"x": {}, "y": {}}
	if jaccard(a, a) != 1 {
		t.Fatalf("expected jaccard of identical sets to be 1")
	}
}
