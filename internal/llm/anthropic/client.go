// Package anthropic adapts the Anthropic Messages API to the llm.Provider
// contract, grounded on the teacher's internal/llm/anthropic/client.go
// Client but trimmed to a single non-streaming call: no thinking-block
// bookkeeping, no prompt-cache configuration, no multi-turn tool loop.
// JSON-schema-constrained agent output is implemented via a single forced
// tool call, the idiomatic way to get structured output from this API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"newsbrief/internal/llm"
	"newsbrief/internal/observability"
)

const defaultMaxTokens int64 = 1024

// Client implements llm.Provider over the Anthropic Messages API.
type Client struct {
	sdk       anthropic.Client
	model     string
	maxTokens int64
}

// New constructs a Client from raw connectivity settings.
func New(apiKey, baseURL, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(baseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	return &Client{sdk: anthropic.NewClient(opts...), model: model, maxTokens: defaultMaxTokens}
}

func (c *Client) Name() string { return "anthropic" }

// Chat issues one Messages API call. When req.Schema is set, it forces a
// single tool call matching the schema and decodes the tool's input as the
// structured response.
func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	log := observability.LoggerWithTrace(ctx)

	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	var system string
	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if req.Schema != nil {
		properties, _ := req.Schema.Parameters["properties"].(map[string]any)
		params.Tools = []anthropic.ToolUnionParam{{
			OfTool: &anthropic.ToolParam{
				Name:        req.Schema.Name,
				Description: anthropic.String(req.Schema.Description),
				InputSchema: anthropic.ToolInputSchemaParam{Properties: properties},
			},
		}}
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: req.Schema.Name},
		}
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("provider", "anthropic").Str("model", model).Msg("messages_create_error")
		return llm.Response{}, fmt.Errorf("anthropic messages.create: %w", err)
	}

	out := llm.Response{
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Text += b.Text
		case anthropic.ToolUseBlock:
			if req.Schema != nil && b.Name == req.Schema.Name {
				var parsed map[string]any
				if err := json.Unmarshal(b.Input, &parsed); err == nil {
					out.JSON = parsed
				}
			}
		}
	}
	if req.Schema != nil && out.JSON == nil {
		return llm.Response{}, fmt.Errorf("anthropic messages.create: expected tool call %q, got none", req.Schema.Name)
	}
	return out, nil
}
