package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"newsbrief/internal/llm"
)

// Keyphrase extracts 5-15 scored phrases with surface variants from the
// retrieved documents, grounded on the teacher's internal/llm/openai
// structured-output pattern: one LLM call constrained to a JSON schema.
type Keyphrase struct{}

func (Keyphrase) Name() string { return "keyphrase" }

var keyphraseSchema = llm.ToolSchema{
	Name:        "keyphrase_result",
	Description: "Scored keyphrases extracted from a set of news documents",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"phrases": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"phrase":   map[string]any{"type": "string"},
						"score":    map[string]any{"type": "number"},
						"ngram":    map[string]any{"type": "integer"},
						"variants": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required": []string{"phrase", "score", "ngram", "variants"},
				},
			},
		},
		"required": []string{"phrases"},
	},
}

func (Keyphrase) Run(ctx context.Context, in Input) (any, error) {
	if len(in.Docs) == 0 {
		return KeyphraseResult{}, nil
	}
	system := "Extract 5 to 15 keyphrases from the documents below. Score each in [0,1] by salience, " +
		"note its n-gram order, and list surface variants seen in the text. Respond with JSON only."
	user := docsContext(in.Docs, 30)

	out, _, err := in.Router.CallStructured(ctx, in.Route, system, user, 1200, keyphraseSchema, in.Ledger)
	if err != nil {
		return nil, fmt.Errorf("keyphrase: %w", err)
	}

	var result KeyphraseResult
	if err := remarshal(out, &result); err != nil {
		return nil, fmt.Errorf("keyphrase: decode response: %w", err)
	}
	return result, nil
}

// remarshal round-trips a map[string]any through JSON into a typed struct,
// the simplest way to adapt llm.Response.JSON (a generic decoded object)
// into each agent's concrete result type.
func remarshal(in map[string]any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
