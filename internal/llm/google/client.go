// Package google adapts the Gemini API (via google.golang.org/genai) to the
// llm.Provider contract, grounded on the teacher's
// internal/llm/google/client.go Client but trimmed to a single
// GenerateContent call: no streaming, no thinking-summary or image-config
// plumbing, no function-calling loop. JSON-schema-constrained output uses
// genai's native ResponseSchema/ResponseMIMEType instead of a tool call.
// EmbedText additionally grounds the Memory Store's embedding backend
// (spec.md §4.6), which the teacher's client does not need but genai's SDK
// exposes directly.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"newsbrief/internal/llm"
	"newsbrief/internal/observability"
)

// Client implements llm.Provider over the Gemini GenerateContent API.
type Client struct {
	client *genai.Client
	model  string
}

// New constructs a Client from raw connectivity settings.
func New(apiKey, baseURL, model string, httpClient *http.Client, timeout time.Duration) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	httpOpts := genai.HTTPOptions{}
	if timeout > 0 {
		httpOpts.Timeout = &timeout
	}
	if base := strings.TrimSpace(baseURL); base != "" {
		httpOpts.BaseURL = strings.TrimSuffix(base, "/") + "/"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      strings.TrimSpace(apiKey),
		HTTPClient:  httpClient,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("init google client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Name() string { return "google" }

// Chat issues one GenerateContent call.
func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Response, error) {
	log := observability.LoggerWithTrace(ctx)

	model := req.Model
	if model == "" {
		model = c.model
	}

	var system string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = jsonSchemaToGenai(req.Schema.Parameters)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		log.Error().Err(err).Str("provider", "google").Str("model", model).Msg("generate_content_error")
		return llm.Response{}, fmt.Errorf("google generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return llm.Response{}, fmt.Errorf("google generate content: no candidates returned")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}

	out := llm.Response{Text: text}
	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	if req.Schema != nil {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			return llm.Response{}, fmt.Errorf("google structured response: %w", err)
		}
		out.JSON = parsed
	}
	return out, nil
}

// EmbedText embeds a batch of inputs, unit-normalized per spec.md §4.6's
// cosine-similarity invariant.
func (c *Client) EmbedText(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if model == "" {
		model = "text-embedding-004"
	}
	contents := make([]*genai.Content, len(inputs))
	for i, in := range inputs {
		contents[i] = genai.NewContentFromText(in, genai.RoleUser)
	}
	resp, err := c.client.Models.EmbedContent(ctx, model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("google embed content: %w", err)
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = normalize(e.Values)
	}
	return out, nil
}

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(1.0 / math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * norm
	}
	return out
}

// jsonSchemaToGenai converts the map[string]any JSON-schema "properties"
// shape used across llm.ToolSchema into genai's typed Schema, supporting the
// flat object/string/number/array shapes the Agent Set's schemas use.
func jsonSchemaToGenai(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{Type: genai.TypeObject}
	props, _ := m["properties"].(map[string]any)
	if len(props) > 0 {
		s.Properties = map[string]*genai.Schema{}
		for k, v := range props {
			sub, _ := v.(map[string]any)
			s.Properties[k] = jsonSchemaFieldToGenai(sub)
		}
	}
	if req, ok := m["required"].([]string); ok {
		s.Required = req
	}
	return s
}

func jsonSchemaFieldToGenai(m map[string]any) *genai.Schema {
	t, _ := m["type"].(string)
	switch t {
	case "string":
		return &genai.Schema{Type: genai.TypeString}
	case "number":
		return &genai.Schema{Type: genai.TypeNumber}
	case "integer":
		return &genai.Schema{Type: genai.TypeInteger}
	case "boolean":
		return &genai.Schema{Type: genai.TypeBoolean}
	case "array":
		items, _ := m["items"].(map[string]any)
		return &genai.Schema{Type: genai.TypeArray, Items: jsonSchemaFieldToGenai(items)}
	case "object":
		return jsonSchemaToGenai(m)
	default:
		return &genai.Schema{Type: genai.TypeString}
	}
}
