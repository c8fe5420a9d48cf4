package agents

import (
	"context"
	"fmt"
	"sort"
	"time"

	"newsbrief/internal/llm"
	"newsbrief/internal/model"
)

// Events extracts one event per document via a structured LLM call,
// clusters events that fall within the same temporal window, orders the
// clustered events into a timeline, and asks the model which earlier
// events in the timeline caused later ones, each link with a confidence
// score.
type Events struct{}

func (Events) Name() string { return "events" }

var eventExtractionSchema = llm.ToolSchema{
	Name:        "doc_events_result",
	Description: "One event extracted per document",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"events": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"article_id": map[string]any{"type": "string"},
						"title":      map[string]any{"type": "string"},
						"date":       map[string]any{"type": "string"},
						"entities":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required": []string{"article_id", "title", "date"},
				},
			},
		},
		"required": []string{"events"},
	},
}

var causalLinkSchema = llm.ToolSchema{
	Name:        "causal_links_result",
	Description: "Inferred causal links between a timeline of events",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"links": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"from":       map[string]any{"type": "string"},
						"to":         map[string]any{"type": "string"},
						"confidence": map[string]any{"type": "number"},
					},
					"required": []string{"from", "to", "confidence"},
				},
			},
		},
		"required": []string{"links"},
	},
}

// clusterWindowDays is the temporal-clustering window: events whose dates
// fall within this many days of each other merge into one cluster.
const clusterWindowDays = 2

func (Events) Run(ctx context.Context, in Input) (any, error) {
	if len(in.Docs) == 0 {
		return EventsResult{}, nil
	}

	events, err := extractEvents(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	clustered := clusterByWindow(events, clusterWindowDays)
	timeline := append([]model.Event(nil), clustered...)
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].StartDate < timeline[j].StartDate })

	links, err := inferCausalLinks(ctx, in, timeline)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}

	return EventsResult{Events: clustered, Timeline: timeline, CausalLinks: links}, nil
}

func extractEvents(ctx context.Context, in Input) ([]model.Event, error) {
	system := "Extract one news event per document below: a short title, the date it occurred " +
		"(YYYY-MM-DD), and the entities involved. Respond with JSON only."
	user := docsContext(in.Docs, 30)

	out, _, err := in.Router.CallStructured(ctx, in.Route, system, user, 1500, eventExtractionSchema, in.Ledger)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Events []struct {
			ArticleID string   `json:"article_id"`
			Title     string   `json:"title"`
			Date      string   `json:"date"`
			Entities  []string `json:"entities"`
		} `json:"events"`
	}
	if err := remarshal(out, &parsed); err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(parsed.Events))
	for i, e := range parsed.Events {
		events = append(events, model.Event{
			ID:           fmt.Sprintf("evt-%d", i),
			Title:        e.Title,
			StartDate:    e.Date,
			EndDate:      e.Date,
			Entities:     e.Entities,
			SourceDocIDs: []string{e.ArticleID},
		})
	}
	return events, nil
}

// clusterByWindow merges events whose start dates fall within windowDays
// of one another, keeping the earliest start/latest end and the union of
// entities/source documents across the cluster.
func clusterByWindow(events []model.Event, windowDays int) []model.Event {
	if len(events) == 0 {
		return nil
	}
	sorted := append([]model.Event(nil), events...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartDate < sorted[j].StartDate })

	var clusters []model.Event
	cur := sorted[0]
	for _, e := range sorted[1:] {
		if withinDays(cur.EndDate, e.StartDate, windowDays) {
			cur.EndDate = maxDate(cur.EndDate, e.EndDate)
			cur.Entities = dedupeStrings(append(cur.Entities, e.Entities...))
			cur.SourceDocIDs = append(cur.SourceDocIDs, e.SourceDocIDs...)
			if cur.Title == "" {
				cur.Title = e.Title
			}
			continue
		}
		clusters = append(clusters, cur)
		cur = e
	}
	clusters = append(clusters, cur)
	return clusters
}

func withinDays(a, b string, days int) bool {
	da, oka := parseDate(a)
	db, okb := parseDate(b)
	if !oka || !okb {
		return a == b
	}
	diff := db.Sub(da)
	if diff < 0 {
		diff = -diff
	}
	return diff.Hours() <= float64(24*days)
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func maxDate(a, b string) string {
	if b > a {
		return b
	}
	return a
}

func inferCausalLinks(ctx context.Context, in Input, timeline []model.Event) ([]CausalLink, error) {
	if len(timeline) < 2 {
		return nil, nil
	}
	var b []byte
	for _, e := range timeline {
		b = append(b, []byte(fmt.Sprintf("[%s] %s (%s)\n", e.ID, e.Title, e.StartDate))...)
	}
	system := "Given the ordered timeline of events below, infer which earlier events plausibly " +
		"caused later ones, each with a confidence in [0,1]. Only propose links you are reasonably " +
		"confident about. Respond with JSON only."
	out, _, err := in.Router.CallStructured(ctx, in.Route, system, string(b), 900, causalLinkSchema, in.Ledger)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Links []CausalLink `json:"links"`
	}
	if err := remarshal(out, &parsed); err != nil {
		return nil, err
	}
	return parsed.Links, nil
}
