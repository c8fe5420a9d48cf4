// Package openai adapts OpenAI's Chat Completions API to the llm.Provider
// contract, grounded on the teacher's internal/llm/openai/client.go Client
// but trimmed to the single Chat Completions path: no self-hosted SSE
// transport wrapping, no Gemini raw-HTTP branch, no Responses API, no
// streaming, no image generation. The Agent Set issues one-shot calls and
// reads either plain text or a JSON-schema-constrained object back.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"newsbrief/internal/llm"
	"newsbrief/internal/observability"
)

// Client implements llm.Provider over the OpenAI Chat Completions API.
type Client struct {
	sdk     sdk.Client
	model   string
	baseURL string
}

// New constructs a Client. apiKey and baseURL come from config.ProviderConfig;
// an empty baseURL uses the SDK's default (api.openai.com).
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
		model = "gpt-4o-mini"
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model, baseURL: baseURL}
}

func (c *Client) Name() string { return "openai" }

// Chat issues one Chat Completions call, optionally constrained to a JSON
// schema via req.Schema (OpenAI's response_format=json_schema, strict mode).
func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	log := observability.LoggerWithTrace(ctx)

	model := req.Model
	if model == "" {
		model = c.model
	}

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: adaptMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt[int64](int64(req.MaxTokens))
	}
	if req.Schema != nil {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.Schema.Name,
					Schema: req.Schema.Parameters,
					Strict: sdk.Bool(true),
				},
			},
		}
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("provider", "openai").Str("model", model).Msg("chat_completion_error")
		return llm.Response{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("openai chat completion: no choices returned")
	}

	content := resp.Choices[0].Message.Content
	out := llm.Response{
		Text: content,
		Usage: llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	if req.Schema != nil {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return llm.Response{}, fmt.Errorf("openai structured response: %w", err)
		}
		out.JSON = parsed
	}
	return out, nil
}

func adaptMessages(msgs []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, sdk.SystemMessage(m.Content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(m.Content))
		default:
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}
