// Package agents implements the Agent Set (spec.md §4.5): small,
// single-purpose units that read documents and a parameter bag and
// produce a typed result, through the uniform contract
// run(docs, params, model_router, ledger) -> typed_result | error.
//
// RunParallel fans a set of agents out concurrently and fails fast on the
// first error, grounded on the teacher's internal/agent/warpp.go
// errgroup.WithContext pattern; the Pipeline uses its own tolerant fan-out
// (internal/pipeline/fanout.go) instead. The only multi-agent sets there
// are topics+sentiment and keyphrase+query_expansion; every other agent,
// graph and events included, runs alone in its command's set. synthesis
// reads other agents' results from Params["agent_results"]; agentic_rag
// iterates serially against the Retriever; memory_ops wraps the Memory Store.
package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"newsbrief/internal/budget"
	"newsbrief/internal/llm"
	"newsbrief/internal/memory"
	"newsbrief/internal/model"
	"newsbrief/internal/persistence/databases"
	"newsbrief/internal/retrieve"
)

// Input bundles everything an Agent.Run needs: the retrieved documents, a
// command-specific parameter bag, the route to call the Model Router with,
// the Router itself, and the request's BudgetLedger.
type Input struct {
	Docs   []model.Document
	Params map[string]any
	Route  llm.Route
	Router *llm.Router
	Ledger *budget.Ledger

	// Retriever is only consulted by agentic_rag's re-retrieve step; every
	// other agent works purely off Docs.
	Retriever *retrieve.Retriever

	// Graph backs the graph agent's co-occurrence store and BFS traversal.
	Graph databases.GraphDB

	// Memory backs memory_ops; Embedder provides the embedding call its
	// store/recall operations need.
	Memory   memory.Store
	Embedder Embedder
}

// Embedder computes embeddings for arbitrary text, satisfied by the
// Google provider adapter's EmbedText method.
type Embedder interface {
	EmbedText(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

// Agent is the uniform contract every member of the Agent Set implements.
type Agent interface {
	Name() string
	Run(ctx context.Context, in Input) (any, error)
}

// RunParallel fans Input out to every agent concurrently and collects
// results keyed by Agent.Name(), grounded on the teacher's
// errgroup.WithContext parallel-stage pattern (internal/agent/warpp.go).
// One agent's failure cancels the others' context but each agent is
// expected to respect ctx.Done() only through its own Router calls; a
// failing agent's error is wrapped with its name and returned once all
// goroutines have unwound.
func RunParallel(ctx context.Context, in Input, agentSet ...Agent) (map[string]any, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make(map[string]any, len(agentSet))
	var mu sync.Mutex

	for _, a := range agentSet {
		a := a
		g.Go(func() error {
			res, err := a.Run(ctx, in)
			if err != nil {
				return fmt.Errorf("%s: %w", a.Name(), err)
			}
			mu.Lock()
			results[a.Name()] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// floatParam/stringParam/intParam read optional values out of a params bag
// without panicking on absence or type mismatch, since Params arrives as
// plain map[string]any from the Context Builder's normalized command args.
func stringParam(params map[string]any, key, def string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return def
}

func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// docsContext renders docs as a numbered list of
// "[article_id] (date) title: snippet" lines for inclusion in an LLM
// prompt, capped at maxDocs entries to bound prompt size.
func docsContext(docs []model.Document, maxDocs int) string {
	if maxDocs <= 0 || maxDocs > len(docs) {
		maxDocs = len(docs)
	}
	var b strings.Builder
	for i := 0; i < maxDocs; i++ {
		d := docs[i]
		fmt.Fprintf(&b, "[%s] (%s) %s: %s\n", d.ArticleID, d.PublishedDate, d.Title, d.Snippet)
	}
	return b.String()
}
