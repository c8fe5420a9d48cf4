package agents

import (
	"context"
	"fmt"

	"newsbrief/internal/llm"
)

// QueryExpansion proposes alternate intents, expansions, and negative
// terms for a query, used by /analyze keywords alongside keyphrase.
type QueryExpansion struct{}

func (QueryExpansion) Name() string { return "query_expansion" }

var queryExpansionSchema = llm.ToolSchema{
	Name:        "query_expansion_result",
	Description: "Intent interpretations, expansions, and negative terms for a query",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"intents":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"expansions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"negatives":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"intents", "expansions", "negatives"},
	},
}

func (QueryExpansion) Run(ctx context.Context, in Input) (any, error) {
	query := stringParam(in.Params, "query", "")
	if query == "" {
		return QueryExpansionResult{}, nil
	}
	system := "Given the query below, list plausible user intents, useful query expansions " +
		"(synonyms, related entities, broader/narrower phrasings), and negative terms that would " +
		"disambiguate it from unrelated topics. Respond with JSON only."

	out, _, err := in.Router.CallStructured(ctx, in.Route, system, query, 600, queryExpansionSchema, in.Ledger)
	if err != nil {
		return nil, fmt.Errorf("query_expansion: %w", err)
	}

	var result QueryExpansionResult
	if err := remarshal(out, &result); err != nil {
		return nil, fmt.Errorf("query_expansion: decode response: %w", err)
	}
	return result, nil
}
