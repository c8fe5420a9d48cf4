package orchestrator

import (
	"context"
	"errors"
	"testing"

	"newsbrief/internal/agents"
	"newsbrief/internal/config"
	"newsbrief/internal/contextbuilder"
	"newsbrief/internal/model"
	"newsbrief/internal/pipeline"
	"newsbrief/internal/policy"
)

// With no Retriever configured, the Context Builder's recovery ladder
// exhausts immediately and surfaces NO_DATA; Dispatch must pass that
// error straight through without ever reaching the Pipeline.
func TestDispatchSurfacesContextBuilderError(t *testing.T) {
	builder := contextbuilder.New(nil, config.Config{})
	pl := pipeline.New(policy.New(nil, nil))
	orch := New(builder, pl, agents.Input{}, nil, nil, nil)

	resp := orch.Dispatch(context.Background(), CommandEnvelope{RawCommand: "/trends"})
	if resp.Status != "error" {
		t.Fatalf("expected an error envelope, got status %q", resp.Status)
	}
	if resp.Error == nil || resp.Error.Code != model.ErrNoData {
		t.Fatalf("expected NO_DATA, got %+v", resp.Error)
	}
	if resp.Response != nil {
		t.Fatalf("an error envelope must not also carry a Response")
	}
}

func TestDispatchRejectsUnknownCommand(t *testing.T) {
	builder := contextbuilder.New(nil, config.Config{})
	pl := pipeline.New(policy.New(nil, nil))
	orch := New(builder, pl, agents.Input{}, nil, nil, nil)

	resp := orch.Dispatch(context.Background(), CommandEnvelope{RawCommand: "/not_a_real_command"})
	if resp.Status != "error" || resp.Error == nil || resp.Error.Code != model.ErrValidationFailed {
		t.Fatalf("expected VALIDATION_FAILED for an unrecognized command, got %+v", resp)
	}
}

func TestToErrorResponseClassifiesDeadlineAsBudgetExceeded(t *testing.T) {
	err := toErrorResponse(context.DeadlineExceeded, contextbuilder.Context{})
	if err.Code != model.ErrBudgetExceeded {
		t.Fatalf("expected BUDGET_EXCEEDED for a deadline exceeded error, got %s", err.Code)
	}
}

func TestToErrorResponseClassifiesTransientAsModelUnavailable(t *testing.T) {
	err := toErrorResponse(errors.New("provider returned 429: too many requests"), contextbuilder.Context{})
	if err.Code != model.ErrModelUnavailable {
		t.Fatalf("expected MODEL_UNAVAILABLE for a transient provider error, got %s", err.Code)
	}
}

func TestToErrorResponseDefaultsToInternal(t *testing.T) {
	err := toErrorResponse(errors.New("nil pointer dereference"), contextbuilder.Context{})
	if err.Code != model.ErrInternal {
		t.Fatalf("expected INTERNAL for an unrecognized error, got %s", err.Code)
	}
}

func TestIsTransientError(t *testing.T) {
	cases := map[string]bool{
		"context deadline exceeded":       false,
		"request timeout":                 true,
		"service temporarily unavailable": true,
		"rate limited: too many requests": true,
		"invalid argument":                false,
	}
	for msg, want := range cases {
		if got := isTransientError(errors.New(msg)); got != want {
			t.Errorf("isTransientError(%q) = %v, want %v", msg, got, want)
		}
	}
	if isTransientError(nil) {
		t.Fatalf("isTransientError(nil) must be false")
	}
}
