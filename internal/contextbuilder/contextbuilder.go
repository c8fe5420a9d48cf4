// Package contextbuilder implements the Context Builder (spec.md §4.7):
// it turns a raw command and its args into a validated execution Context
// or a typed *model.ErrorResponse, grounded on the teacher's
// internal/rag/service.Service.Retrieve single-path retrieval, generalized
// into the auto-recovery ladder described below.
package contextbuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"newsbrief/internal/budget"
	"newsbrief/internal/config"
	"newsbrief/internal/llm"
	"newsbrief/internal/model"
	"newsbrief/internal/retrieve"
	"newsbrief/internal/telemetry"
)

// Context is the validated execution context handed to the Pipeline: the
// canonical command, its resolved params, the retrieved documents, the
// model route to use, and the request's Budget Ledger.
type Context struct {
	Command       string
	Params        map[string]any
	Docs          []model.Document
	Route         llm.Route
	Ledger        *budget.Ledger
	NeedsGraph    bool
	NeedsMemory   bool
	CorrelationID string
	UserLang      string
	Warnings      []string
}

// RequestArgs is the raw input to Build: the command as typed by the user,
// its unparsed arguments, and ambient request metadata.
type RequestArgs struct {
	RawCommand   string
	Args         map[string]string
	UserLang     string
	FeatureFlags map[string]bool
}

// Builder assembles Contexts for a configured Retriever and route table.
type Builder struct {
	Retriever  *retrieve.Retriever
	RouteTable map[string]llm.Route
	Config     config.RetrieverConfig
	Budget     config.BudgetConfig
	Metrics    telemetry.Metrics
	Now        func() time.Time
}

// New constructs a Builder, defaulting RouteTable to defaultRouteTable()
// and Now to time.Now when left zero.
func New(retriever *retrieve.Retriever, cfg config.Config) *Builder {
	return &Builder{
		Retriever:  retriever,
		RouteTable: defaultRouteTable(),
		Config:     cfg.Retriever,
		Budget:     cfg.Budget,
		Metrics:    telemetry.NoopMetrics{},
		Now:        time.Now,
	}
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Build runs the seven Context Builder steps of spec.md §4.7 in order,
// short-circuiting with a typed error on the first failing step.
func (b *Builder) Build(ctx context.Context, raw RequestArgs) (Context, *model.ErrorResponse) {
	start := b.now()
	correlationID := uuid.NewString()

	command, ok := normalizeCommand(raw.RawCommand)
	if !ok {
		return Context{}, errResponse(model.ErrValidationFailed,
			"Unrecognized command.", fmt.Sprintf("unknown command token %q", raw.RawCommand), correlationID)
	}
	b.Metrics.IncCounter("context_builder_commands_total", map[string]string{"command": command})

	parsed, err := parseArgs(raw.Args)
	if err != nil {
		return Context{}, errResponse(model.ErrValidationFailed, "Could not parse your arguments.", err.Error(), correlationID)
	}

	params := buildParams(command, parsed, b.Config)

	route, ok := b.RouteTable[command]
	if !ok {
		return Context{}, errResponse(model.ErrValidationFailed,
			"This command has no configured model route.", fmt.Sprintf("no route for command %q", command), correlationID)
	}

	ledger := budget.New(b.Budget.MaxTokensPerCommand, b.Budget.MaxCostCentsPerCommand, b.Budget.MaxDuration())

	docs, ladderWarnings, tech := b.retrieveWithRecovery(ctx, command, params)
	if tech != "" {
		return Context{}, errResponse(model.ErrNoData, "No recent coverage matched your request.", tech, correlationID)
	}
	if !skipCommands[command] && !skipsRetrieval(command, params) {
		// k_final tracks what was actually retrieved, so step 7's
		// "k_final equals len(docs)" invariant holds by construction.
		params["k_final"] = len(docs)
	}

	needsGraph := command == "graph_query"
	needsMemory := command == "memory_suggest" || command == "memory_store" || command == "memory_recall"

	built := Context{
		Command:       command,
		Params:        params,
		Docs:          docs,
		Route:         route,
		Ledger:        ledger,
		NeedsGraph:    needsGraph,
		NeedsMemory:   needsMemory,
		CorrelationID: correlationID,
		UserLang:      raw.UserLang,
		Warnings:      ladderWarnings,
	}

	if verr := validateContext(built, b.Budget); verr != nil {
		return Context{}, errResponse(model.ErrValidationFailed, "Your request could not be validated.", verr.Error(), correlationID)
	}

	b.Metrics.ObserveHistogram("context_builder_build_ms", float64(b.now().Sub(start).Milliseconds()),
		map[string]string{"command": command})
	return built, nil
}

func errResponse(code model.ErrorCode, userMsg, techMsg, correlationID string) *model.ErrorResponse {
	resp := model.NewErrorResponse(code, userMsg, techMsg, model.Meta{CorrelationID: correlationID})
	return &resp
}

// skipsRetrieval reports whether a command is intent-classified as
// general-knowledge and therefore injects an empty document list instead
// of calling the Retriever (spec.md §4.8 step 1).
func skipsRetrieval(command string, params map[string]any) bool {
	if command != "ask" {
		return false
	}
	intent, _ := params["intent"].(string)
	return intent == "general_knowledge"
}
