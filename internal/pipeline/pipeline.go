// Package pipeline implements the Pipeline (spec.md §4.8): the four
// stages that turn a built Context into a validated AnalysisResponse —
// Retrieval-assertion, Agents fan-out, Format, Validate — grounded on the
// teacher's internal/rag/service.Service.Retrieve call chain, generalized
// from one retrieval path into a staged command pipeline.
package pipeline

import (
	"context"
	"fmt"

	"newsbrief/internal/agents"
	"newsbrief/internal/contextbuilder"
	"newsbrief/internal/model"
	"newsbrief/internal/policy"
)

// commandAgentSets maps each canonical command to the Agent Set it fans
// out to (spec.md §4.8 step 2). search and graph_query/memory_* commands
// either need no agent (search) or are handled by a single dedicated
// agent that already owns their command-specific semantics.
var commandAgentSets = map[string][]agents.Agent{
	"trends":              {agents.Topics{}, agents.Sentiment{}},
	"analyze_keywords":    {agents.Keyphrase{}, agents.QueryExpansion{}},
	"analyze_sentiment":   {agents.Sentiment{}},
	"analyze_topics":      {agents.Topics{}},
	"analyze_competitors": {agents.CompetitorNews{}},
	"predict_trends":      {agents.TrendForecaster{}},
	"synthesize":          {agents.Synthesis{}},
	"ask":                 {agents.AgenticRAG{}},
	"events_link":         {agents.Events{}},
	"graph_query":         {agents.Graph{}},
	"memory_suggest":      {agents.MemoryOps{}},
	"memory_store":        {agents.MemoryOps{}},
	"memory_recall":       {agents.MemoryOps{}},
	"search":              {},
}

// Pipeline runs the four stages for a built Context against a configured
// Validator.
type Pipeline struct {
	Validator *policy.Validator
}

// New constructs a Pipeline over a Policy Validator.
func New(v *policy.Validator) *Pipeline {
	return &Pipeline{Validator: v}
}

// Run executes Retrieval-assertion, Agents fan-out, Format, and Validate
// in order, returning a validated AnalysisResponse or a typed error the
// Orchestrator maps onto an ErrorResponse.
func (p *Pipeline) Run(ctx context.Context, c contextbuilder.Context, in agents.Input) (model.AnalysisResponse, error) {
	if err := assertRetrieval(c); err != nil {
		return model.AnalysisResponse{}, err
	}

	in.Docs = c.Docs
	in.Params = c.Params
	in.Route = c.Route
	in.Ledger = c.Ledger

	set, ok := commandAgentSets[c.Command]
	if !ok {
		return model.AnalysisResponse{}, fmt.Errorf("no agent set configured for command %q", c.Command)
	}

	results, warnings, err := runAgents(ctx, in, set)
	if err != nil {
		return model.AnalysisResponse{}, err
	}

	resp := format(c, results)
	resp.Warnings = append(resp.Warnings, warnings...)
	resp.Warnings = append(resp.Warnings, c.Ledger.Warnings()...)

	if err := p.Validator.Validate(&resp, c.UserLang); err != nil {
		return model.AnalysisResponse{}, err
	}
	return resp, nil
}

// assertRetrieval implements step 1: every command but the
// retrieval-skipping ones (contextbuilder's skipCommands) and search,
// whose Result is the document list itself, must have at least one document by the time the Pipeline runs, since the Context
// Builder's NO_DATA short-circuit only covers its own retrieval call.
func assertRetrieval(c contextbuilder.Context) error {
	switch c.Command {
	case "memory_suggest", "memory_store", "memory_recall", "search":
		return nil
	}
	if len(c.Docs) == 0 {
		return fmt.Errorf("no documents available for command %q", c.Command)
	}
	return nil
}
