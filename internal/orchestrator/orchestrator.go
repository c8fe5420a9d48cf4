// Package orchestrator implements the Orchestrator (spec.md §4.9): the
// entry point that turns a raw command envelope into a Context via the
// Context Builder, runs the Pipeline, and emits either an
// AnalysisResponse or an ErrorResponse envelope. Adapted from the
// teacher's internal/orchestrator/handler.go Kafka-message dispatch into
// a synchronous function-call surface — the envelope-in/envelope-out
// separation and the transient-error-to-retryable mapping survive,
// message-bus transport does not (newsbrief has no workflow bus to
// mediate; a command is a direct call, not a queued envelope).
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"newsbrief/internal/agents"
	"newsbrief/internal/contextbuilder"
	"newsbrief/internal/memory"
	"newsbrief/internal/model"
	"newsbrief/internal/observability"
	"newsbrief/internal/persistence/databases"
	"newsbrief/internal/pipeline"
)

// CommandEnvelope is the external request shape: a raw command string
// plus its arguments, carrying the same fields as the teacher's
// CommandEnvelope minus the Kafka routing metadata (ReplyTopic, Workflow)
// that no longer applies to a direct call.
type CommandEnvelope struct {
	RawCommand   string            `json:"raw_command"`
	Args         map[string]string `json:"args,omitempty"`
	UserLang     string            `json:"user_lang,omitempty"`
	FeatureFlags map[string]bool   `json:"feature_flags,omitempty"`
}

// ResponseEnvelope wraps either a successful AnalysisResponse or a typed
// ErrorResponse, mirroring the teacher's success/error ResponseEnvelope
// duality but carrying the richer typed payloads instead of a bare
// map[string]any result.
type ResponseEnvelope struct {
	Status   string                `json:"status"` // success | error
	Response *model.AnalysisResponse `json:"response,omitempty"`
	Error    *model.ErrorResponse    `json:"error,omitempty"`
}

// Orchestrator wires the Context Builder, the Pipeline, and the runtime
// dependencies (Router, Retriever, Graph, Memory, Embedder) that flow
// into agents.Input.
type Orchestrator struct {
	Builder  *contextbuilder.Builder
	Pipeline *pipeline.Pipeline

	Template *agents.Input // supplies Router and Retriever; copied into every request's Input
	Graph    databases.GraphDB
	Memory   memory.Store
	Embedder agents.Embedder
}

// New constructs an Orchestrator. template supplies the Router and
// Retriever every request's agents.Input is seeded from (the Docs,
// Params, Route, and Ledger fields are always overwritten per request by
// the Pipeline).
func New(builder *contextbuilder.Builder, pl *pipeline.Pipeline, template agents.Input, graph databases.GraphDB, mem memory.Store, embedder agents.Embedder) *Orchestrator {
	return &Orchestrator{
		Builder:  builder,
		Pipeline: pl,
		Template: &template,
		Graph:    graph,
		Memory:   mem,
		Embedder: embedder,
	}
}

// Dispatch runs the full Received → ContextBuilt → RetrievalDone →
// AgentsDone → Formatted → Validated → Emitted state machine of
// spec.md §4.9 for one command. Every exit path returns exactly one of
// Response or Error set, never both.
func (o *Orchestrator) Dispatch(ctx context.Context, cmd CommandEnvelope) ResponseEnvelope {
	// Received → ContextBuilt
	built, errResp := o.Builder.Build(ctx, contextbuilder.RequestArgs{
		RawCommand:   cmd.RawCommand,
		Args:         cmd.Args,
		UserLang:     cmd.UserLang,
		FeatureFlags: cmd.FeatureFlags,
	})
	if errResp != nil {
		return ResponseEnvelope{Status: "error", Error: errResp}
	}

	// Bound the rest of the request by the smaller of the route's timeout
	// and the ledger's remaining duration (spec.md §5 cancellation rule).
	timeout := boundedTimeout(built)
	if built.Ledger != nil {
		if remaining := o.Builder.Budget.MaxDuration() - built.Ledger.Snapshot().Elapsed; remaining < timeout {
			timeout = remaining
		}
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	in := agents.Input{}
	if o.Template != nil {
		in = *o.Template
	}
	in.Graph = o.Graph
	in.Memory = o.Memory
	in.Embedder = o.Embedder

	// RetrievalDone happened inside Build; AgentsDone, Formatted, and
	// Validated happen inside Pipeline.Run.
	resp, err := o.Pipeline.Run(runCtx, built, in)
	if err != nil {
		errResp := toErrorResponse(err, built)
		observability.LoggerWithTrace(ctx).Warn().
			Err(err).Str("command", cmd.RawCommand).Str("correlation_id", built.CorrelationID).
			Str("error_code", string(errResp.Code)).
			Msg("dispatch_failed")
		return ResponseEnvelope{Status: "error", Error: errResp}
	}

	// Emitted.
	return ResponseEnvelope{Status: "success", Response: &resp}
}

func boundedTimeout(c contextbuilder.Context) time.Duration {
	if c.Route.Timeout > 0 {
		return c.Route.Timeout
	}
	return 20 * time.Second
}

// toErrorResponse classifies a Pipeline-stage failure into the §7
// taxonomy: a context deadline (the route timeout or the ledger's
// remaining duration, whichever was smaller) is BUDGET_EXCEEDED; isTransientError's heuristic distinguishes a
// retryable MODEL_UNAVAILABLE from a non-retryable INTERNAL failure,
// grounded on the teacher's isTransientError text-heuristic.
func toErrorResponse(err error, c contextbuilder.Context) *model.ErrorResponse {
	meta := model.Meta{CorrelationID: c.CorrelationID}

	if errors.Is(err, context.DeadlineExceeded) {
		resp := model.NewErrorResponse(model.ErrBudgetExceeded,
			"This request ran out of its time or cost budget.", err.Error(), meta)
		return &resp
	}

	if isTransientError(err) {
		resp := model.NewErrorResponse(model.ErrModelUnavailable,
			"The model provider was unavailable. Please try again.", err.Error(), meta)
		return &resp
	}

	resp := model.NewErrorResponse(model.ErrInternal,
		"Something went wrong while processing your request.", err.Error(), meta)
	return &resp
}

// isTransientError is the teacher's text heuristic (internal/orchestrator
// /handler.go), unchanged: providers and transports report timeouts and
// rate limits as plain error strings, not a typed error hierarchy.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "temporary") ||
		strings.Contains(s, "temporarily unavailable") ||
		strings.Contains(s, "transient") ||
		strings.Contains(s, "retry") ||
		strings.Contains(s, "too many requests")
}
