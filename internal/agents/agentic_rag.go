package agents

import (
	"context"
	"fmt"

	"newsbrief/internal/llm"
	"newsbrief/internal/model"
	"newsbrief/internal/retrieve"
)

// AgenticRAG is the only serial agent: it iterates generate -> self-check
// -> reformulate -> re-retrieve up to depth times, stopping early once a
// self-check call reports the draft sufficient or the ledger runs out,
// grounded on the teacher's internal/agent ReAct loop and Critique
// approve/revise pattern, adapted here from "revise a tool call" to
// "insufficient answer -> reformulate query -> re-retrieve".
type AgenticRAG struct{}

func (AgenticRAG) Name() string { return "agentic_rag" }

var selfCheckSchema = llm.ToolSchema{
	Name:        "self_check_result",
	Description: "Whether a draft answer is sufficient, and how to reformulate the query otherwise",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sufficient":          map[string]any{"type": "boolean"},
			"reason":              map[string]any{"type": "string"},
			"reformulated_query":  map[string]any{"type": "string"},
			"followups":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"sufficient", "reason"},
	},
}

func (AgenticRAG) Run(ctx context.Context, in Input) (any, error) {
	query := stringParam(in.Params, "query", "")
	if query == "" {
		return AgenticRAGResult{}, fmt.Errorf("agentic_rag: empty query")
	}
	depth := intParam(in.Params, "depth", 2)
	if depth < 1 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}

	docs := in.Docs
	result := AgenticRAGResult{}

	for iter := 0; iter < depth; iter++ {
		if in.Ledger.RemainingRatio() <= 0 {
			break
		}

		genSystem := "Answer the user's query using only the documents below. Be concise and cite " +
			"article ids inline in brackets. If the documents do not support a confident answer, say so."
		genUser := "Query: " + query + "\n\nDocuments:\n" + docsContext(docs, 20)
		draft, _, err := in.Router.Call(ctx, in.Route, genSystem, genUser, 900, in.Ledger)
		if err != nil {
			return nil, fmt.Errorf("agentic_rag: generate: %w", err)
		}

		if in.Ledger.RemainingRatio() <= 0 {
			result.Steps = append(result.Steps, RAGStep{Query: query, Draft: draft, Sufficient: true, Reason: "ledger exhausted after generation"})
			result.Answer = draft
			break
		}

		checkSystem := "Judge whether the draft answer below fully and directly answers the query " +
			"using only the supplied documents. If not, propose a reformulated query that would " +
			"retrieve better evidence, and list 1-3 natural followup questions a reader might ask next."
		checkUser := fmt.Sprintf("Query: %s\n\nDraft answer:\n%s", query, draft)
		out, _, err := in.Router.CallStructured(ctx, in.Route, checkSystem, checkUser, 500, selfCheckSchema, in.Ledger)
		if err != nil {
			return nil, fmt.Errorf("agentic_rag: self-check: %w", err)
		}

		var check struct {
			Sufficient         bool     `json:"sufficient"`
			Reason             string   `json:"reason"`
			ReformulatedQuery  string   `json:"reformulated_query"`
			Followups          []string `json:"followups"`
		}
		if err := remarshal(out, &check); err != nil {
			return nil, fmt.Errorf("agentic_rag: decode self-check: %w", err)
		}

		result.Steps = append(result.Steps, RAGStep{Query: query, Draft: draft, Sufficient: check.Sufficient, Reason: check.Reason})
		result.Answer = draft
		if len(check.Followups) > 0 {
			result.Followups = check.Followups
		}

		if check.Sufficient || check.ReformulatedQuery == "" || in.Retriever == nil || iter == depth-1 {
			break
		}

		query = check.ReformulatedQuery
		redocs, err := reRetrieve(ctx, in, query)
		if err != nil {
			break
		}
		docs = redocs
	}

	return result, nil
}

func reRetrieve(ctx context.Context, in Input, query string) ([]model.Document, error) {
	window, _ := in.Params["window"].(retrieve.Window)
	language := stringParam(in.Params, "language", "")
	sources, _ := in.Params["sources"].([]string)
	kFinal := intParam(in.Params, "k_final", 6)
	useRerank, _ := in.Params["use_rerank"].(bool)
	return in.Retriever.Retrieve(ctx, query, window, language, sources, kFinal, useRerank)
}
