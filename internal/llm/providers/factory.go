// Package providers builds the set of llm.Provider adapters the Model
// Router fans out across, grounded on the teacher's
// internal/llm/providers/factory.go dispatch-by-name pattern but rebuilt
// against config.ProviderConfig's flat API-key shape — one adapter per
// configured key, rather than a single selected provider.
package providers

import (
	"fmt"
	"net/http"
	"time"

	"newsbrief/internal/agents"
	"newsbrief/internal/config"
	"newsbrief/internal/llm"
	"newsbrief/internal/llm/anthropic"
	"newsbrief/internal/llm/google"
	openaillm "newsbrief/internal/llm/openai"
)

// BuildAll constructs one llm.Provider per provider with a configured API
// key, in a stable order (openai, anthropic, google) suitable as a Model
// Router fallback chain's default ordering. Google doubles as the Embedder
// (agents.Input.Embedder) since it is the only configured embedding backend.
func BuildAll(cfg config.ProviderConfig, httpClient *http.Client) ([]llm.Provider, agents.Embedder, error) {
	var out []llm.Provider
	var embedder agents.Embedder
	if cfg.OpenAIAPIKey != "" {
		out = append(out, openaillm.New(cfg.OpenAIAPIKey, "", "gpt-5-mini", httpClient))
	}
	if cfg.AnthropicAPIKey != "" {
		out = append(out, anthropic.New(cfg.AnthropicAPIKey, "", "claude-haiku-4", httpClient))
	}
	if cfg.GoogleAPIKey != "" {
		g, err := google.New(cfg.GoogleAPIKey, "", "gemini-2.5-flash", httpClient, 30*time.Second)
		if err != nil {
			return nil, nil, fmt.Errorf("build google provider: %w", err)
		}
		out = append(out, g)
		embedder = g
	}
	if len(out) == 0 {
		return nil, nil, fmt.Errorf("no llm provider configured: set at least one of OPENAI_API_KEY, ANTHROPIC_API_KEY, GOOGLE_API_KEY")
	}
	return out, embedder, nil
}
