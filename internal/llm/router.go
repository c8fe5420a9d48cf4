package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"newsbrief/internal/budget"
	"newsbrief/internal/observability"
	"newsbrief/internal/util"
)

// logFallback warns that a candidate failed and attaches the request that
// was sent, passed through RedactJSON, which masks the values of JSON keys
// whose names look credential-related. Message content is logged as sent:
// a credential-like string inside a scraped article's text is not masked.
func logFallback(ctx context.Context, err error, provider, model string, req Request) {
	raw, _ := json.Marshal(req)
	observability.LoggerWithTrace(ctx).Warn().
		Err(err).Str("provider", provider).Str("model", model).
		RawJSON("request", observability.RedactJSON(raw)).
		Msg("model_router_fallback")
}

// Route names a primary provider/model and an ordered fallback chain, per
// spec.md §4.2's call(route, prompt, docs, max_tokens, ledger) contract.
type Route struct {
	Primary   ProviderModel
	Fallbacks []ProviderModel
	Timeout   time.Duration
}

// ProviderModel pairs a provider name with the model it should use.
type ProviderModel struct {
	Provider string
	Model    string
}

// CallMeta reports what actually happened for one Router.Call invocation:
// which provider served the request, and the resulting usage/cost.
type CallMeta struct {
	ProviderUsed string
	Model        string
	TokensIn     int
	TokensOut    int
	CostCents    float64
	Attempts     int
}

// centsPerKTokens is a per-model cost table (cents per 1K input/output
// tokens). Unknown models fall back to a conservative default rate.
var centsPerKTokens = map[string][2]float64{
	"gpt-4o-mini":                  {0.015, 0.06},
	"gpt-4o":                       {0.25, 1.0},
	"claude-3-7-sonnet-latest":     {0.3, 1.5},
	"gemini-1.5-flash":             {0.01, 0.04},
	"gemini-1.5-pro":               {0.125, 0.5},
}

const defaultCentsPerK1, defaultCentsPerK2 = 0.1, 0.3

// Router dispatches one-shot calls across a ProviderSet with fallback,
// per-call timeout, and ledger accounting, grounded on the teacher's
// internal/llm/providers.Build factory and internal/llm/provider.go's
// Provider interface. A Router holds only its provider index and is handed
// the ledger on every call, so the single Router built at process start
// (cmd/newsbriefd) is shared by all requests without holding request state.
type Router struct {
	byName map[string]Provider
}

// NewRouter indexes a ProviderSet by Provider.Name() for route lookups.
func NewRouter(providers []Provider) *Router {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Router{byName: byName}
}

// Call implements spec.md §4.2: send the caller's system and user prompts
// to route.Primary under route.Timeout, and on timeout/transport/provider
// failure fall through route.Fallbacks in order. Every attempt — success or
// failure — records tokens and estimated cost on the ledger. Returns
// model.ErrModelUnavailable-flavored error iff every candidate fails.
func (r *Router) Call(ctx context.Context, route Route, systemPrompt, userPrompt string, maxTokens int, ledger *budget.Ledger) (string, CallMeta, error) {
	candidates := append([]ProviderModel{route.Primary}, route.Fallbacks...)

	req := Request{
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: maxTokens,
	}

	var lastErr error
	attempts := 0
	for _, cand := range candidates {
		attempts++
		provider, ok := r.byName[cand.Provider]
		if !ok {
			lastErr = fmt.Errorf("provider %q not configured", cand.Provider)
			continue
		}

		estimatedTokensIn := util.CountTokens(systemPrompt + userPrompt)
		estimatedCost := estimateCostCents(cand.Model, estimatedTokensIn, maxTokens)
		if !ledger.CanAfford(estimatedTokensIn+maxTokens, estimatedCost) {
			return "", CallMeta{}, fmt.Errorf("%w: insufficient budget for %s/%s", errBudgetExceeded, cand.Provider, cand.Model)
		}

		callCtx, cancel := context.WithTimeout(ctx, route.Timeout)
		req.Model = cand.Model
		resp, err := provider.Chat(callCtx, req)
		cancel()

		tokensIn, tokensOut := estimatedTokensIn, 0
		if resp.Usage.TotalTokens > 0 {
			tokensIn, tokensOut = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
		}
		costCents := estimateCostCents(cand.Model, tokensIn, tokensOut)
		ledger.Record(tokensIn+tokensOut, costCents, 0)

		if err != nil {
			logFallback(ctx, err, cand.Provider, cand.Model, req)
			lastErr = err
			continue
		}

		return resp.Text, CallMeta{
			ProviderUsed: cand.Provider,
			Model:        cand.Model,
			TokensIn:     tokensIn,
			TokensOut:    tokensOut,
			CostCents:    costCents,
			Attempts:     attempts,
		}, nil
	}

	return "", CallMeta{}, fmt.Errorf("%w: all candidates failed, last error: %v", errModelUnavailable, lastErr)
}

// CallStructured is Call's JSON-schema-constrained counterpart, used by
// agents that need a typed response rather than free text.
func (r *Router) CallStructured(ctx context.Context, route Route, systemPrompt, userPrompt string, maxTokens int, schema ToolSchema, ledger *budget.Ledger) (map[string]any, CallMeta, error) {
	candidates := append([]ProviderModel{route.Primary}, route.Fallbacks...)
	req := Request{
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: maxTokens,
		Schema:    &schema,
	}

	var lastErr error
	attempts := 0
	for _, cand := range candidates {
		attempts++
		provider, ok := r.byName[cand.Provider]
		if !ok {
			lastErr = fmt.Errorf("provider %q not configured", cand.Provider)
			continue
		}

		estimatedTokensIn := util.CountTokens(systemPrompt + userPrompt)
		estimatedCost := estimateCostCents(cand.Model, estimatedTokensIn, maxTokens)
		if !ledger.CanAfford(estimatedTokensIn+maxTokens, estimatedCost) {
			return nil, CallMeta{}, fmt.Errorf("%w: insufficient budget for %s/%s", errBudgetExceeded, cand.Provider, cand.Model)
		}

		callCtx, cancel := context.WithTimeout(ctx, route.Timeout)
		req.Model = cand.Model
		resp, err := provider.Chat(callCtx, req)
		cancel()

		tokensIn, tokensOut := estimatedTokensIn, 0
		if resp.Usage.TotalTokens > 0 {
			tokensIn, tokensOut = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
		}
		costCents := estimateCostCents(cand.Model, tokensIn, tokensOut)
		ledger.Record(tokensIn+tokensOut, costCents, 0)

		if err != nil {
			logFallback(ctx, err, cand.Provider, cand.Model, req)
			lastErr = err
			continue
		}

		return resp.JSON, CallMeta{
			ProviderUsed: cand.Provider,
			Model:        cand.Model,
			TokensIn:     tokensIn,
			TokensOut:    tokensOut,
			CostCents:    costCents,
			Attempts:     attempts,
		}, nil
	}

	return nil, CallMeta{}, fmt.Errorf("%w: all candidates failed, last error: %v", errModelUnavailable, lastErr)
}

func estimateCostCents(model string, tokensIn, tokensOut int) float64 {
	rates, ok := centsPerKTokens[model]
	inRate, outRate := defaultCentsPerK1, defaultCentsPerK2
	if ok {
		inRate, outRate = rates[0], rates[1]
	}
	return float64(tokensIn)/1000*inRate + float64(tokensOut)/1000*outRate
}

var (
	errBudgetExceeded  = errors.New("budget_exceeded")
	errModelUnavailable = errors.New("model_unavailable")
)

// ErrBudgetExceeded reports whether err originated from a budget check.
func ErrBudgetExceeded(err error) bool { return errors.Is(err, errBudgetExceeded) }

// ErrModelUnavailable reports whether err originated from exhausting every
// fallback candidate.
func ErrModelUnavailable(err error) bool { return errors.Is(err, errModelUnavailable) }
