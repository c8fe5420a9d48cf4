package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Synthesis reads the typed results already produced by the other agents
// in the current command's graph (passed in via Params["agent_results"])
// and detects cross-agent conflicts — e.g. negative sentiment paired with
// a rising trend on the same entity — plus ranked recommendations. It
// performs no I/O and calls no model.
type Synthesis struct{}

func (Synthesis) Name() string { return "synthesis" }

const maxSummaryLen = 400

func (Synthesis) Run(_ context.Context, in Input) (any, error) {
	results, _ := in.Params["agent_results"].(map[string]any)

	var conflicts []string
	conflicts = append(conflicts, sentimentTrendConflicts(results)...)

	actions := recommendationsFrom(results, conflicts)
	summary := summarize(results, conflicts)

	return SynthesisResult{
		Summary:   summary,
		Conflicts: conflicts,
		Actions:   actions,
	}, nil
}

// sentimentTrendConflicts flags when sentiment's overall score is
// negative while topics reports a rising topic, or vice versa with a
// positive overall score and a falling topic — both read as a surprising
// combination worth surfacing to the reader.
func sentimentTrendConflicts(results map[string]any) []string {
	sent, ok := results["sentiment"].(SentimentResult)
	if !ok {
		return nil
	}
	top, ok := results["topics"].(TopicsResult)
	if !ok {
		return nil
	}
	var out []string
	for _, t := range top.Topics {
		switch {
		case sent.Overall < -0.2 && t.Trend == "rising":
			out = append(out, fmt.Sprintf("negative overall sentiment (%.2f) alongside a rising topic %q", sent.Overall, t.Label))
		case sent.Overall > 0.2 && t.Trend == "falling":
			out = append(out, fmt.Sprintf("positive overall sentiment (%.2f) alongside a falling topic %q", sent.Overall, t.Label))
		}
	}
	return out
}

// recommendationsFrom derives 1-5 recommendations: one per conflict
// (medium impact, since a conflict always merits a closer look), plus one
// high-impact recommendation if trend_forecaster reports an upward move or
// one low-impact recommendation for a downward move, and a single
// low-impact monitoring recommendation when none of these apply.
func recommendationsFrom(results map[string]any, conflicts []string) []RecommendedAction {
	var actions []RecommendedAction
	for _, c := range conflicts {
		actions = append(actions, RecommendedAction{
			Text:   "Investigate: " + c,
			Impact: "medium",
		})
	}
	if tf, ok := results["trend_forecaster"].(TrendForecastResult); ok {
		switch tf.Direction {
		case "up":
			actions = append(actions, RecommendedAction{Text: "Coverage volume is trending up; consider a follow-up brief.", Impact: "high"})
		case "down":
			actions = append(actions, RecommendedAction{Text: "Coverage volume is trending down; confirm the story has not gone cold.", Impact: "low"})
		}
	}
	if len(actions) == 0 {
		actions = append(actions, RecommendedAction{Text: "No conflicting signals or strong coverage move detected; keep monitoring.", Impact: "low"})
	}
	const maxActions = 5
	if len(actions) > maxActions {
		actions = actions[:maxActions]
	}
	return actions
}

func summarize(results map[string]any, conflicts []string) string {
	var parts []string
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k)
	}
	summary := fmt.Sprintf("Synthesized %d agent result(s) (%s); %d conflict(s) detected.",
		len(results), strings.Join(parts, ", "), len(conflicts))
	if len(summary) > maxSummaryLen {
		summary = summary[:maxSummaryLen]
	}
	return summary
}
