package agents

import (
	"context"
	"time"

	"newsbrief/internal/budget"
	"newsbrief/internal/llm"
)

// fakeProvider is a scripted llm.Provider for agent tests: it always
// returns resp/err regardless of the request, mirroring the shape the
// teacher's own provider adapters implement.
type fakeProvider struct {
	name string
	resp llm.Response
	err  error
}

func (f fakeProvider) Name() string { return f.name }

func (f fakeProvider) Chat(_ context.Context, _ llm.Request) (llm.Response, error) {
	return f.resp, f.err
}

func testRoute() llm.Route {
	return llm.Route{
		Primary: llm.ProviderModel{Provider: "fake", Model: "fake-model"},
		Timeout: 5 * time.Second,
	}
}

func testRouter(p fakeProvider) *llm.Router {
	return llm.NewRouter([]llm.Provider{p})
}

func testLedger() *budget.Ledger {
	return budget.New(1_000_000, 1_000_000, time.Minute)
}
