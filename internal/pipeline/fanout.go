package pipeline

import (
	"context"
	"fmt"
	"sync"

	"newsbrief/internal/agents"
)

// runAgents fans Input out to every agent in set concurrently and
// collects results keyed by Agent.Name(). Unlike agents.RunParallel
// (whose errgroup.WithContext aborts every goroutine on the first
// error), a stage here only fails as a whole when every agent in the set
// fails (spec.md §4.8 step 2) — a partial failure degrades the response
// with a warning tag instead of discarding the whole stage.
func runAgents(ctx context.Context, in agents.Input, set []agents.Agent) (map[string]any, []string, error) {
	if len(set) == 0 {
		return map[string]any{}, nil, nil
	}

	type outcome struct {
		name string
		res  any
		err  error
	}
	out := make(chan outcome, len(set))

	var wg sync.WaitGroup
	for _, a := range set {
		wg.Add(1)
		go func(a agents.Agent) {
			defer wg.Done()
			res, err := a.Run(ctx, in)
			out <- outcome{name: a.Name(), res: res, err: err}
		}(a)
	}
	wg.Wait()
	close(out)

	results := make(map[string]any, len(set))
	var warnings []string
	failures := 0
	for o := range out {
		if o.err != nil {
			failures++
			warnings = append(warnings, fmt.Sprintf("agent_failed:%s", o.name))
			continue
		}
		results[o.name] = o.res
	}

	if failures == len(set) {
		return nil, nil, fmt.Errorf("all agents in stage failed")
	}
	return results, warnings, nil
}
