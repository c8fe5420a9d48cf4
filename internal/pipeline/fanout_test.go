package pipeline

import (
	"context"
	"errors"
	"testing"

	"newsbrief/internal/agents"
)

type fakeAgent struct {
	name string
	res  any
	err  error
}

func (f fakeAgent) Name() string { return f.name }
func (f fakeAgent) Run(ctx context.Context, in agents.Input) (any, error) {
	return f.res, f.err
}

func TestRunAgentsPartialFailureDegrades(t *testing.T) {
	set := []agents.Agent{
		fakeAgent{name: "ok", res: "fine"},
		fakeAgent{name: "bad", err: errors.New("boom")},
	}
	results, warnings, err := runAgents(context.Background(), agents.Input{}, set)
	if err != nil {
		t.Fatalf("runAgents returned error on partial failure: %v", err)
	}
	if results["ok"] != "fine" {
		t.Fatalf("expected surviving agent's result to be kept, got %v", results)
	}
	if _, present := results["bad"]; present {
		t.Fatalf("failed agent should not appear in results")
	}
	found := false
	for _, w := range warnings {
		if w == "agent_failed:bad" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected agent_failed:bad warning, got %v", warnings)
	}
}

func TestRunAgentsAllFail(t *testing.T) {
	set := []agents.Agent{
		fakeAgent{name: "a", err: errors.New("boom")},
		fakeAgent{name: "b", err: errors.New("boom")},
	}
	_, _, err := runAgents(context.Background(), agents.Input{}, set)
	if err == nil {
		t.Fatalf("expected error when every agent in the stage fails")
	}
}

func TestRunAgentsEmptySet(t *testing.T) {
	results, warnings, err := runAgents(context.Background(), agents.Input{}, nil)
	if err != nil || len(results) != 0 || len(warnings) != 0 {
		t.Fatalf("expected empty, error-free result for an empty agent set, got %v %v %v", results, warnings, err)
	}
}
