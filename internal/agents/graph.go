package agents

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"newsbrief/internal/llm"
	"newsbrief/internal/model"
	"newsbrief/internal/persistence/databases"
)

// Graph extracts named entities per document (LLM-assisted, falling back
// to a capitalized-run regex when the model call fails), builds a
// co-occurrence graph over them in the configured GraphDB, traverses it
// breadth-first from a seed entity up to a hop limit, and synthesizes a
// natural-language answer over the resulting subgraph. Grounded on
// databases.GraphDB (postgres_graph.go/memory_graph.go) for storage and
// the teacher's retrieve graph-expansion subgraph-extraction shape.
type Graph struct{}

func (Graph) Name() string { return "graph" }

const maxHops = 4
const coOccursRel = "co_occurs"

var entitySchema = llm.ToolSchema{
	Name:        "doc_entities_result",
	Description: "Named entities mentioned in each document",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"doc_entities": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"article_id": map[string]any{"type": "string"},
						"entities":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required": []string{"article_id", "entities"},
				},
			},
		},
		"required": []string{"doc_entities"},
	},
}

var capitalizedRunRe = regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?:\s[A-Z][a-zA-Z]+)*\b`)

func (g Graph) Run(ctx context.Context, in Input) (any, error) {
	if len(in.Docs) == 0 {
		return GraphResult{}, nil
	}

	perDoc := g.extractEntities(ctx, in)

	for articleID, entities := range perDoc {
		for _, e := range entities {
			if in.Graph != nil {
				_ = in.Graph.UpsertNode(ctx, e, []string{"entity"}, map[string]any{})
			}
		}
		for i := 0; i < len(entities); i++ {
			for j := i + 1; j < len(entities); j++ {
				if in.Graph != nil {
					_ = in.Graph.UpsertEdge(ctx, entities[i], coOccursRel, entities[j], map[string]any{"article_id": articleID})
					_ = in.Graph.UpsertEdge(ctx, entities[j], coOccursRel, entities[i], map[string]any{"article_id": articleID})
				}
			}
		}
	}

	seed := stringParam(in.Params, "entity", "")
	if seed == "" {
		seed = mostMentioned(perDoc)
	}
	hops := intParam(in.Params, "hops", 2)
	if hops < 1 {
		hops = 1
	}
	if hops > maxHops {
		hops = maxHops
	}

	nodes, edges, paths := bfsSubgraph(ctx, in.Graph, seed, hops)

	query := stringParam(in.Params, "query", "")
	answer, err := g.synthesize(ctx, in, query, seed, nodes, edges)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}

	return GraphResult{Nodes: nodes, Edges: edges, Paths: paths, Answer: answer}, nil
}

// extractEntities tries one LLM call covering all documents; on failure
// it falls back to a regex pass per document, since the corpus is plain
// English news text where capitalized runs are a reasonable NER proxy.
func (Graph) extractEntities(ctx context.Context, in Input) map[string][]string {
	system := "List the named entities (people, organizations, places) mentioned in each document " +
		"below, keyed by its article_id. Respond with JSON only."
	user := docsContext(in.Docs, 30)

	out, _, err := in.Router.CallStructured(ctx, in.Route, system, user, 1500, entitySchema, in.Ledger)
	if err == nil {
		var parsed struct {
			DocEntities []struct {
				ArticleID string   `json:"article_id"`
				Entities  []string `json:"entities"`
			} `json:"doc_entities"`
		}
		if remarshal(out, &parsed) == nil && len(parsed.DocEntities) > 0 {
			result := make(map[string][]string, len(parsed.DocEntities))
			for _, de := range parsed.DocEntities {
				result[de.ArticleID] = de.Entities
			}
			return result
		}
	}

	result := make(map[string][]string, len(in.Docs))
	for _, d := range in.Docs {
		result[d.ArticleID] = dedupeStrings(capitalizedRunRe.FindAllString(d.Title+" "+d.Snippet, -1))
	}
	return result
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func mostMentioned(perDoc map[string][]string) string {
	counts := make(map[string]int)
	for _, entities := range perDoc {
		for _, e := range entities {
			counts[e]++
		}
	}
	best, bestCount := "", 0
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}

// bfsSubgraph traverses the co-occurrence graph breadth-first from seed
// up to hops levels, returning the visited nodes, the edges discovered
// along the way, and the path taken to reach each newly visited node.
func bfsSubgraph(ctx context.Context, g databases.GraphDB, seed string, hops int) ([]model.GraphNode, []model.GraphEdge, [][]string) {
	if g == nil || seed == "" {
		return nil, nil, nil
	}

	visited := map[string]bool{seed: true}
	pathTo := map[string][]string{seed: {seed}}
	queue := []string{seed}

	var nodes []model.GraphNode
	var edges []model.GraphEdge
	var paths [][]string

	if n, ok := g.GetNode(ctx, seed); ok {
		nodes = append(nodes, model.GraphNode{ID: n.ID, Label: seed, Type: "entity"})
	} else {
		nodes = append(nodes, model.GraphNode{ID: seed, Label: seed, Type: "entity"})
	}

	for level := 0; level < hops && len(queue) > 0; level++ {
		var next []string
		for _, cur := range queue {
			neighbors, err := g.Neighbors(ctx, cur, coOccursRel)
			if err != nil {
				continue
			}
			for _, nb := range neighbors {
				edges = append(edges, model.GraphEdge{Src: cur, Tgt: nb, Type: coOccursRel, Weight: 1})
				if visited[nb] {
					continue
				}
				visited[nb] = true
				path := append(append([]string{}, pathTo[cur]...), nb)
				pathTo[nb] = path
				paths = append(paths, path)
				if n, ok := g.GetNode(ctx, nb); ok {
					nodes = append(nodes, model.GraphNode{ID: n.ID, Label: nb, Type: "entity"})
				} else {
					nodes = append(nodes, model.GraphNode{ID: nb, Label: nb, Type: "entity"})
				}
				next = append(next, nb)
			}
		}
		queue = next
	}

	return nodes, edges, paths
}

func (g Graph) synthesize(ctx context.Context, in Input, query, seed string, nodes []model.GraphNode, edges []model.GraphEdge) (string, error) {
	if query == "" {
		query = "Summarize how " + seed + " relates to the other entities found in coverage."
	}
	var b strings.Builder
	for _, n := range nodes {
		fmt.Fprintf(&b, "node: %s\n", n.Label)
	}
	for _, e := range edges {
		fmt.Fprintf(&b, "edge: %s -[%s]-> %s\n", e.Src, e.Type, e.Tgt)
	}
	system := "Using only the entity graph below, answer the query concisely, naming specific entities and their relationships."
	user := "Query: " + query + "\n\nGraph:\n" + b.String()
	answer, _, err := in.Router.Call(ctx, in.Route, system, user, 600, in.Ledger)
	return answer, err
}
