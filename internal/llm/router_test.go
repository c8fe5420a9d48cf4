package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"newsbrief/internal/budget"
)

type fakeProvider struct {
	name    string
	fail    bool
	text    string
	jsonOut map[string]any
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Chat(ctx context.Context, req Request) (Response, error) {
	if f.fail {
		return Response{}, errTestProviderDown
	}
	return Response{Text: f.text, JSON: f.jsonOut, Usage: Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}, nil
}

var errTestProviderDown = &providerDownError{}

type providerDownError struct{}

func (e *providerDownError) Error() string { return "provider down" }

func TestRouter_FallsThroughOnFailure(t *testing.T) {
	r := NewRouter([]Provider{
		&fakeProvider{name: "openai", fail: true},
		&fakeProvider{name: "anthropic", text: "fallback answer"},
	})
	ledger := budget.New(10000, 1000, time.Minute)
	route := Route{
		Primary:   ProviderModel{Provider: "openai", Model: "gpt-4o-mini"},
		Fallbacks: []ProviderModel{{Provider: "anthropic", Model: "claude-3-7-sonnet-latest"}},
		Timeout:   5 * time.Second,
	}

	text, meta, err := r.Call(context.Background(), route, "sys", "user", 100, ledger)
	require.NoError(t, err)
	require.Equal(t, "fallback answer", text)
	require.Equal(t, "anthropic", meta.ProviderUsed)
	require.Equal(t, 2, meta.Attempts)
}

func TestRouter_AllFail(t *testing.T) {
	r := NewRouter([]Provider{&fakeProvider{name: "openai", fail: true}})
	ledger := budget.New(10000, 1000, time.Minute)
	route := Route{Primary: ProviderModel{Provider: "openai", Model: "gpt-4o-mini"}, Timeout: time.Second}

	_, _, err := r.Call(context.Background(), route, "sys", "user", 100, ledger)
	require.Error(t, err)
	require.True(t, ErrModelUnavailable(err))
}

func TestRouter_BudgetExceeded(t *testing.T) {
	r := NewRouter([]Provider{&fakeProvider{name: "openai", text: "ok"}})
	ledger := budget.New(5, 0, time.Minute) // too small to afford any call
	route := Route{Primary: ProviderModel{Provider: "openai", Model: "gpt-4o-mini"}, Timeout: time.Second}

	_, _, err := r.Call(context.Background(), route, "sys", "user", 100, ledger)
	require.Error(t, err)
	require.True(t, ErrBudgetExceeded(err))
}

func TestRouter_CallStructured(t *testing.T) {
	r := NewRouter([]Provider{&fakeProvider{name: "openai", jsonOut: map[string]any{"label": "x"}}})
	ledger := budget.New(10000, 1000, time.Minute)
	route := Route{Primary: ProviderModel{Provider: "openai", Model: "gpt-4o-mini"}, Timeout: time.Second}

	out, meta, err := r.CallStructured(context.Background(), route, "sys", "user", 100, ToolSchema{Name: "classify"}, ledger)
	require.NoError(t, err)
	require.Equal(t, "x", out["label"])
	require.Equal(t, "openai", meta.ProviderUsed)
}
