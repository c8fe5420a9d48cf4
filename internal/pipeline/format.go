package pipeline

import (
	"fmt"
	"sort"

	"newsbrief/internal/agents"
	"newsbrief/internal/contextbuilder"
	"newsbrief/internal/model"
)

const (
	maxEvidenceCards = 5
	// maxTLDRChars mirrors policy.Validator's maxTLDRLen: free-text agent
	// output (AgenticRAGResult.Answer, GraphResult.Answer) has no length
	// guarantee and must be capped before it reaches the Validator.
	maxTLDRChars = 220
)

func truncateTLDR(s string) string {
	if len(s) <= maxTLDRChars {
		return s
	}
	return s[:maxTLDRChars-3] + "..."
}

// maxInsightChars mirrors policy.Validator's maxInsightLen, applied to
// Insight text built directly from free-text agent output (synthesis
// conflicts/actions, RAG followups) rather than a short fixed template.
const maxInsightChars = 180

func truncateInsight(s string) string {
	if len(s) <= maxInsightChars {
		return s
	}
	return s[:maxInsightChars-3] + "..."
}

// format implements step 3: assemble an AnalysisResponse from the
// Context and the agent set's results, deriving Header/TLDR/Insights
// from whichever typed result(s) the command's agent set produced and
// capping Evidence at 5 cards (spec.md §4.2's Evidence contract).
func format(c contextbuilder.Context, results map[string]any) model.AnalysisResponse {
	resp := model.AnalysisResponse{
		Meta: model.Meta{
			Model:         c.Route.Primary.Model,
			CorrelationID: c.CorrelationID,
			Confidence:    0.7,
		},
		Evidence: evidenceFrom(c.Docs),
	}

	switch c.Command {
	case "trends":
		resp.Header, resp.TLDR, resp.Insights = formatTrends(results)
		resp.Result = singleOrCombined(results)
	case "analyze_keywords":
		resp.Header, resp.TLDR, resp.Insights = formatKeywords(results)
		resp.Result = singleOrCombined(results)
	case "analyze_sentiment":
		resp.Header, resp.TLDR, resp.Insights = formatSentiment(results["sentiment"])
		resp.Result = results["sentiment"]
	case "analyze_topics":
		resp.Header, resp.TLDR, resp.Insights = formatTopics(results["topics"])
		resp.Result = results["topics"]
	case "analyze_competitors":
		resp.Header, resp.TLDR, resp.Insights = formatCompetitors(results["competitor_news"])
		resp.Result = trimCompetitorOverlap(results["competitor_news"])
	case "predict_trends":
		resp.Header, resp.TLDR, resp.Insights = formatForecast(results["trend_forecaster"])
		resp.Result = results["trend_forecaster"]
	case "synthesize":
		resp.Header, resp.TLDR, resp.Insights = formatSynthesis(results["synthesis"])
		resp.Result = results["synthesis"]
	case "ask":
		resp.Header, resp.TLDR, resp.Insights = formatRAG(results["agentic_rag"])
		resp.Result = results["agentic_rag"]
	case "events_link":
		resp.Header, resp.TLDR, resp.Insights = formatEvents(results["events"])
		resp.Result = results["events"]
	case "graph_query":
		resp.Header, resp.TLDR, resp.Insights = formatGraph(results["graph"])
		resp.Result = results["graph"]
	case "memory_suggest", "memory_store", "memory_recall":
		resp.Header, resp.TLDR, resp.Insights = formatMemoryOps(results["memory_ops"])
		resp.Result = results["memory_ops"]
	case "search":
		resp.Header = "Search results"
		resp.TLDR = fmt.Sprintf("%d matching documents.", len(c.Docs))
		resp.Result = c.Docs
	default:
		resp.Header = c.Command
	}

	attachEvidenceRefs(resp.Insights, c.Docs)
	return resp
}

// attachEvidenceRefs gives every Insight that doesn't already carry its
// own EvidenceRefs (e.g. trend_forecaster's drivers) a pointer back to
// the documents that backed the command, satisfying spec.md §8's
// "every insight has ≥1 evidence_ref" invariant for agents whose typed
// result doesn't track per-claim citations.
func attachEvidenceRefs(insights []model.Insight, docs []model.Document) {
	refs := genericRefs(docs, 3)
	for i := range insights {
		if len(insights[i].EvidenceRefs) == 0 {
			insights[i].EvidenceRefs = refs
		}
	}
}

func genericRefs(docs []model.Document, n int) []model.EvidenceRef {
	if n > len(docs) {
		n = len(docs)
	}
	refs := make([]model.EvidenceRef, 0, n)
	for i := 0; i < n; i++ {
		refs = append(refs, model.EvidenceRef{ArticleID: docs[i].ArticleID, URL: docs[i].URL, Date: docs[i].PublishedDate})
	}
	return refs
}

func singleOrCombined(results map[string]any) any {
	if len(results) == 1 {
		for _, v := range results {
			return v
		}
	}
	return results
}

func evidenceFrom(docs []model.Document) []model.Evidence {
	n := len(docs)
	if n > maxEvidenceCards {
		n = maxEvidenceCards
	}
	ev := make([]model.Evidence, 0, n)
	for i := 0; i < n; i++ {
		d := docs[i]
		ev = append(ev, model.Evidence{
			Title:     d.Title,
			ArticleID: d.ArticleID,
			URL:       d.URL,
			Date:      d.PublishedDate,
			Snippet:   d.Snippet,
		})
	}
	return ev
}

func formatTrends(results map[string]any) (header, tldr string, insights []model.Insight) {
	header = "Trend overview"
	if t, ok := results["topics"].(agents.TopicsResult); ok && len(t.Topics) > 0 {
		tldr = fmt.Sprintf("%d topic clusters identified, led by %q.", len(t.Topics), t.Topics[0].Label)
		for _, topic := range t.Topics {
			insights = append(insights, model.Insight{
				Type: model.InsightFact,
				Text: fmt.Sprintf("%s is %s (%d documents).", topic.Label, topic.Trend, topic.Size),
			})
		}
	}
	if s, ok := results["sentiment"].(agents.SentimentResult); ok {
		insights = append(insights, model.Insight{
			Type: model.InsightFact,
			Text: fmt.Sprintf("Overall sentiment is %.2f.", s.Overall),
		})
	}
	if tldr == "" {
		tldr = "No clear trend signal in the retrieved coverage."
	}
	return header, tldr, insights
}

func formatKeywords(results map[string]any) (header, tldr string, insights []model.Insight) {
	header = "Keyword analysis"
	if k, ok := results["keyphrase"].(agents.KeyphraseResult); ok && len(k.Phrases) > 0 {
		tldr = fmt.Sprintf("Top phrase: %q.", k.Phrases[0].Phrase)
		for _, p := range k.Phrases {
			insights = append(insights, model.Insight{Type: model.InsightFact, Text: fmt.Sprintf("%q scored %.2f.", p.Phrase, p.Score)})
		}
	} else {
		tldr = "No salient phrases extracted."
	}
	return header, tldr, insights
}

func formatSentiment(res any) (header, tldr string, insights []model.Insight) {
	header = "Sentiment analysis"
	s, ok := res.(agents.SentimentResult)
	if !ok {
		return header, "No sentiment signal available.", nil
	}
	tldr = fmt.Sprintf("Overall sentiment %.2f.", s.Overall)
	for _, a := range s.Aspects {
		insights = append(insights, model.Insight{Type: model.InsightFact, Text: fmt.Sprintf("%s sentiment is %.2f.", a.Aspect, a.Score)})
	}
	return header, tldr, insights
}

func formatTopics(res any) (header, tldr string, insights []model.Insight) {
	header = "Topic clusters"
	t, ok := res.(agents.TopicsResult)
	if !ok || len(t.Topics) == 0 {
		return header, "No topic clusters found.", nil
	}
	tldr = fmt.Sprintf("%d clusters, largest is %q.", len(t.Topics), t.Topics[0].Label)
	for _, topic := range t.Topics {
		insights = append(insights, model.Insight{Type: model.InsightFact, Text: fmt.Sprintf("%s (%s, %d docs).", topic.Label, topic.Trend, topic.Size)})
	}
	return header, tldr, insights
}

func formatCompetitors(res any) (header, tldr string, insights []model.Insight) {
	header = "Competitive positioning"
	c, ok := res.(agents.CompetitorNewsResult)
	if !ok || len(c.Domains) == 0 {
		return header, "No competitor coverage found.", nil
	}
	tldr = fmt.Sprintf("%d domains compared.", len(c.Domains))
	for domain, pos := range c.Positioning {
		insights = append(insights, model.Insight{Type: model.InsightFact, Text: fmt.Sprintf("%s is a %s.", domain, pos)})
	}
	for _, gap := range c.Gaps {
		insights = append(insights, model.Insight{Type: model.InsightRecommendation, Text: truncateInsight(gap)})
	}
	return header, tldr, insights
}

// trimCompetitorOverlap caps the Overlap matrix at 5 domain rows so the
// response's Result payload stays bounded regardless of how many
// domains were compared (a degradation rule, not a hard agent limit).
func trimCompetitorOverlap(res any) any {
	c, ok := res.(agents.CompetitorNewsResult)
	if !ok || len(c.Overlap) <= maxEvidenceCards {
		return res
	}
	rows := make([]string, 0, len(c.Overlap))
	for k := range c.Overlap {
		rows = append(rows, k)
	}
	sort.Strings(rows)
	trimmed := make(map[string]map[string]float64, maxEvidenceCards)
	for _, k := range rows[:maxEvidenceCards] {
		trimmed[k] = c.Overlap[k]
	}
	c.Overlap = trimmed
	return c
}

func formatForecast(res any) (header, tldr string, insights []model.Insight) {
	header = "Trend forecast"
	f, ok := res.(agents.TrendForecastResult)
	if !ok {
		return header, "No forecast available.", nil
	}
	tldr = fmt.Sprintf("Direction: %s (slope %.3f).", f.Direction, f.Slope)
	for _, d := range f.Drivers {
		insights = append(insights, model.Insight{Type: model.InsightFact, Text: d.Text, EvidenceRefs: d.EvidenceRefs})
	}
	return header, tldr, insights
}

func formatSynthesis(res any) (header, tldr string, insights []model.Insight) {
	header = "Synthesis"
	s, ok := res.(agents.SynthesisResult)
	if !ok {
		return header, "Nothing to synthesize.", nil
	}
	tldr = truncateTLDR(s.Summary)
	for _, conflict := range s.Conflicts {
		insights = append(insights, model.Insight{Type: model.InsightConflict, Text: truncateInsight(conflict)})
	}
	for _, a := range s.Actions {
		insights = append(insights, model.Insight{Type: model.InsightRecommendation, Text: truncateInsight(fmt.Sprintf("[%s] %s", a.Impact, a.Text))})
	}
	return header, tldr, insights
}

func formatRAG(res any) (header, tldr string, insights []model.Insight) {
	header = "Answer"
	r, ok := res.(agents.AgenticRAGResult)
	if !ok {
		return header, "No answer produced.", nil
	}
	tldr = truncateTLDR(r.Answer)
	for _, f := range r.Followups {
		insights = append(insights, model.Insight{Type: model.InsightRecommendation, Text: truncateInsight(f)})
	}
	return header, tldr, insights
}

func formatEvents(res any) (header, tldr string, insights []model.Insight) {
	header = "Event timeline"
	e, ok := res.(agents.EventsResult)
	if !ok || len(e.Timeline) == 0 {
		return header, "No events found.", nil
	}
	tldr = fmt.Sprintf("%d events linked.", len(e.Timeline))
	for _, link := range e.CausalLinks {
		insights = append(insights, model.Insight{
			Type: model.InsightHypothesis,
			Text: fmt.Sprintf("%s likely contributed to %s (confidence %.2f).", link.From, link.To, link.Confidence),
		})
	}
	return header, tldr, insights
}

func formatGraph(res any) (header, tldr string, insights []model.Insight) {
	header = "Knowledge graph"
	g, ok := res.(agents.GraphResult)
	if !ok {
		return header, "No graph answer produced.", nil
	}
	tldr = truncateTLDR(g.Answer)
	insights = append(insights, model.Insight{Type: model.InsightFact, Text: fmt.Sprintf("%d nodes, %d edges in the extracted subgraph.", len(g.Nodes), len(g.Edges))})
	return header, tldr, insights
}

// formatMemoryOps never emits Insights: memory operations skip retrieval
// (spec.md §6), so there are no documents to back an evidence_ref, and
// every Insight in a response must carry at least one (spec.md §8).
// Suggestions/recalled records surface through Result instead.
func formatMemoryOps(res any) (header, tldr string, insights []model.Insight) {
	header = "Memory"
	m, ok := res.(agents.MemoryOpsResult)
	if !ok {
		return header, "No memory operation result.", nil
	}
	switch m.Operation {
	case "suggest":
		tldr = fmt.Sprintf("%d suggestions.", len(m.Suggestions))
	case "store":
		tldr = "Stored."
	case "recall":
		tldr = fmt.Sprintf("%d memories recalled.", len(m.Recalled))
	}
	return header, tldr, nil
}
