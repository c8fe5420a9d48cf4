package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NEWSBRIEF_CONFIG_FILE", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "24h", cfg.Retriever.WindowDefault)
	require.Equal(t, 6, cfg.Retriever.KFinalDefault)
	require.True(t, cfg.Retriever.AutoExpandWindow)
	require.Equal(t, 300, cfg.Retriever.CacheTTLSec)
	require.Equal(t, 20, cfg.Budget.MaxDurationSec)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("NEWSBRIEF_RETRIEVER_K_FINAL_DEFAULT", "9")
	t.Setenv("NEWSBRIEF_BUDGET_MAX_TOKENS", "1024")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Retriever.KFinalDefault)
	require.Equal(t, 1024, cfg.Budget.MaxTokensPerCommand)
}

func TestFirstNonEmpty(t *testing.T) {
	require.Equal(t, "b", firstNonEmpty("", "b", "c"))
	require.Equal(t, "", firstNonEmpty("", "  "))
}
