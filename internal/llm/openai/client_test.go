package openai

import (
	"testing"

	"github.com/stretchr/testify/require"

	"newsbrief/internal/llm"
)

func TestAdaptMessages(t *testing.T) {
	out := adaptMessages([]llm.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})
	require.Len(t, out, 3)
}

func TestNew_DefaultsModel(t *testing.T) {
	c := New("key", "", "", nil)
	require.Equal(t, "gpt-4o-mini", c.model)
	require.Equal(t, "openai", c.Name())
}
