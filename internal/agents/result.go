package agents

import "newsbrief/internal/model"

// KeyphraseResult is keyphrase's output (spec.md §4.5): 5-15 scored
// phrases, each with its n-gram order and surface variants.
type KeyphraseResult struct {
	Phrases []KeyphraseItem `json:"phrases"`
}

type KeyphraseItem struct {
	Phrase   string   `json:"phrase"`
	Score    float64  `json:"score"`
	Ngram    int      `json:"ngram"`
	Variants []string `json:"variants"`
}

// SentimentResult is sentiment's output: an overall score, up to five
// named emotions summing to at most 1, and per-aspect scores.
type SentimentResult struct {
	Overall  float64            `json:"overall"`
	Emotions map[string]float64 `json:"emotions"`
	Aspects  []AspectSentiment  `json:"aspects"`
}

type AspectSentiment struct {
	Aspect string  `json:"aspect"`
	Score  float64 `json:"score"`
}

// TopicsResult is topics' output: 3-8 clusters.
type TopicsResult struct {
	Topics []Topic `json:"topics"`
}

type Topic struct {
	Label string   `json:"label"`
	Terms []string `json:"terms"`
	Size  int      `json:"size"`
	Trend string   `json:"trend"` // rising | falling | stable
}

// QueryExpansionResult is query_expansion's output.
type QueryExpansionResult struct {
	Intents    []string `json:"intents"`
	Expansions []string `json:"expansions"`
	Negatives  []string `json:"negatives"`
}

// TrendForecastResult is trend_forecaster's output: an EWMA-derived
// direction, 3-5 evidenced drivers, and a confidence interval.
type TrendForecastResult struct {
	Direction string        `json:"direction"` // up | flat | down
	Slope     float64       `json:"slope"`
	Drivers   []TrendDriver `json:"drivers"`
	CILow     float64       `json:"ci_low"`
	CIHigh    float64       `json:"ci_high"`
}

type TrendDriver struct {
	Text         string              `json:"text"`
	EvidenceRefs []model.EvidenceRef `json:"evidence_refs"`
}

// CompetitorNewsResult is competitor_news' output.
type CompetitorNewsResult struct {
	Domains     []string                      `json:"domains"`
	Overlap     map[string]map[string]float64 `json:"overlap"` // domain -> domain -> Jaccard
	Positioning map[string]string             `json:"positioning"` // domain -> leader|fast_follower|niche
	Gaps        []string                      `json:"gaps"`
}

// SynthesisResult is synthesis' output: cross-agent conflicts and
// ranked recommendations.
type SynthesisResult struct {
	Summary     string               `json:"summary"` // <= 400 chars
	Conflicts   []string             `json:"conflicts"`
	Actions     []RecommendedAction  `json:"actions"`
}

type RecommendedAction struct {
	Text   string `json:"text"`
	Impact string `json:"impact"` // low | medium | high
}

// AgenticRAGResult is agentic_rag's output: the iteration trace, the
// final answer, and suggested followup queries.
type AgenticRAGResult struct {
	Steps     []RAGStep `json:"steps"`
	Answer    string    `json:"answer"`
	Followups []string  `json:"followups"`
}

type RAGStep struct {
	Query      string `json:"query"`
	Draft      string `json:"draft"`
	Sufficient bool   `json:"sufficient"`
	Reason     string `json:"reason"`
}

// GraphResult is graph's output: the extracted subgraph, any traversed
// paths, and a natural-language answer grounded in it.
type GraphResult struct {
	Nodes  []model.GraphNode `json:"nodes"`
	Edges  []model.GraphEdge `json:"edges"`
	Paths  [][]string        `json:"paths"`
	Answer string            `json:"answer"`
}

// EventsResult is events' output: extracted events, their timeline
// ordering, and inferred causal links.
type EventsResult struct {
	Events      []model.Event `json:"events"`
	Timeline    []model.Event `json:"timeline"`
	CausalLinks []CausalLink  `json:"causal_links"`
}

type CausalLink struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Confidence float64 `json:"confidence"`
}

// MemoryOpsResult is memory_ops' output; only the field matching
// Operation is populated.
type MemoryOpsResult struct {
	Operation   string               `json:"operation"` // suggest | store | recall
	Suggestions []MemorySuggestion   `json:"suggestions,omitempty"`
	Stored      *model.MemoryRecord  `json:"stored,omitempty"`
	Recalled    []model.MemoryRecord `json:"recalled,omitempty"`
}

type MemorySuggestion struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}
