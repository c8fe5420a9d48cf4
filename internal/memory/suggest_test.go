package memory

import (
	"testing"

	"newsbrief/internal/model"
)

func TestSuggestStorage_EventLanguageSuggestsEpisodic(t *testing.T) {
	s := SuggestStorage("The summit was held in Geneva and the treaty was signed by both parties.")
	if s.Type != model.MemoryEpisodic {
		t.Fatalf("expected episodic, got %v", s.Type)
	}
	if s.TTLDays != episodicDefaultTTLDays {
		t.Fatalf("expected %d day TTL, got %d", episodicDefaultTTLDays, s.TTLDays)
	}
}

func TestSuggestStorage_PlainStatementSuggestsSemantic(t *testing.T) {
	s := SuggestStorage("inflation tends to erode purchasing power over time")
	if s.Type != model.MemorySemantic {
		t.Fatalf("expected semantic, got %v", s.Type)
	}
	if s.TTLDays != semanticDefaultTTLDays {
		t.Fatalf("expected %d day TTL, got %d", semanticDefaultTTLDays, s.TTLDays)
	}
}

func TestSuggestStorage_ImportanceWithinRange(t *testing.T) {
	s := SuggestStorage("Apple Inc announced a new product at a press conference in Cupertino California with executives from around the world attending the major launch event that drew significant media attention")
	if s.Importance < 0 || s.Importance > 1 {
		t.Fatalf("expected importance in [0,1], got %v", s.Importance)
	}
}
