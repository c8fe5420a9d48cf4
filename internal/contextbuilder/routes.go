package contextbuilder

import (
	"time"

	"newsbrief/internal/llm"
)

// Abstract provider/model identifiers from spec.md §6's route table; the
// provider table itself is implementation configuration.
var (
	modelG = llm.ProviderModel{Provider: "google", Model: "gemini-2.5-flash"}
	modelC = llm.ProviderModel{Provider: "anthropic", Model: "claude-haiku-4"}
	modelO = llm.ProviderModel{Provider: "openai", Model: "gpt-5-mini"}
)

// defaultRouteTable resolves each canonical command to the model route of
// the task(s) it fires, per spec.md §6's route table.
func defaultRouteTable() map[string]llm.Route {
	return map[string]llm.Route{
		"analyze_keywords":    {Primary: modelG, Fallbacks: []llm.ProviderModel{modelC, modelO}, Timeout: 10 * time.Second},
		"trends":              {Primary: modelC, Fallbacks: []llm.ProviderModel{modelO, modelG}, Timeout: 18 * time.Second},
		"analyze_sentiment":   {Primary: modelO, Fallbacks: []llm.ProviderModel{modelC}, Timeout: 12 * time.Second},
		"analyze_topics":      {Primary: modelC, Fallbacks: []llm.ProviderModel{modelO, modelG}, Timeout: 18 * time.Second},
		"analyze_competitors": {Primary: modelC, Fallbacks: []llm.ProviderModel{modelO, modelG}, Timeout: 18 * time.Second},
		"predict_trends":      {Primary: modelO, Fallbacks: []llm.ProviderModel{modelC, modelG}, Timeout: 18 * time.Second},
		"synthesize":          {Primary: modelO, Fallbacks: []llm.ProviderModel{modelC, modelG}, Timeout: 18 * time.Second},
		"ask":                 {Primary: modelO, Fallbacks: []llm.ProviderModel{modelC, modelG}, Timeout: 18 * time.Second},
		"events_link":         {Primary: modelO, Fallbacks: []llm.ProviderModel{modelC, modelG}, Timeout: 18 * time.Second},
		"graph_query":         {Primary: modelC, Fallbacks: []llm.ProviderModel{modelO, modelG}, Timeout: 18 * time.Second},
		"memory_suggest":      {Primary: modelG, Fallbacks: []llm.ProviderModel{modelO}, Timeout: 12 * time.Second},
		"memory_store":        {Primary: modelG, Fallbacks: []llm.ProviderModel{modelO}, Timeout: 12 * time.Second},
		"memory_recall":       {Primary: modelG, Fallbacks: []llm.ProviderModel{modelO}, Timeout: 12 * time.Second},
		"search":              {Primary: modelG, Fallbacks: []llm.ProviderModel{modelO}, Timeout: 10 * time.Second},
	}
}
