package agents

import (
	"context"
	"fmt"

	"newsbrief/internal/memory"
	"newsbrief/internal/model"
)

// MemoryOps is a thin wrapper over the Memory Store (spec.md §4.6),
// dispatching on params["operation"] to suggest/store/recall.
type MemoryOps struct{}

func (MemoryOps) Name() string { return "memory_ops" }

func (MemoryOps) Run(ctx context.Context, in Input) (any, error) {
	op := stringParam(in.Params, "operation", "recall")
	switch op {
	case "suggest":
		return runSuggest(in)
	case "store":
		return runStore(ctx, in)
	case "recall":
		return runRecall(ctx, in)
	default:
		return nil, fmt.Errorf("memory_ops: unknown operation %q", op)
	}
}

func runSuggest(in Input) (MemoryOpsResult, error) {
	content := stringParam(in.Params, "content", "")
	if content == "" {
		return MemoryOpsResult{}, fmt.Errorf("memory_ops: suggest requires content")
	}
	s := memory.SuggestStorage(content)
	return MemoryOpsResult{
		Operation: "suggest",
		Suggestions: []MemorySuggestion{
			{Content: fmt.Sprintf("type=%s ttl_days=%d", s.Type, s.TTLDays), Score: s.Importance},
		},
	}, nil
}

func runStore(ctx context.Context, in Input) (MemoryOpsResult, error) {
	if in.Memory == nil || in.Embedder == nil {
		return MemoryOpsResult{}, fmt.Errorf("memory_ops: store requires a configured Memory and Embedder")
	}
	content := stringParam(in.Params, "content", "")
	if content == "" {
		return MemoryOpsResult{}, fmt.Errorf("memory_ops: store requires content")
	}
	userID := stringParam(in.Params, "user_id", "")
	embedModel := stringParam(in.Params, "embed_model", "")

	recType := model.MemoryRecordType(stringParam(in.Params, "type", ""))
	ttlDays := intParam(in.Params, "ttl_days", 0)
	if recType == "" || ttlDays <= 0 {
		s := memory.SuggestStorage(content)
		if recType == "" {
			recType = s.Type
		}
		if ttlDays <= 0 {
			ttlDays = s.TTLDays
		}
	}

	embeddings, err := in.Embedder.EmbedText(ctx, embedModel, []string{content})
	if err != nil || len(embeddings) == 0 {
		return MemoryOpsResult{}, fmt.Errorf("memory_ops: embed content: %w", err)
	}

	rec := model.MemoryRecord{
		Type:      recType,
		Content:   content,
		Embedding: embeddings[0],
		TTLDays:   ttlDays,
		UserID:    userID,
	}
	stored, err := in.Memory.Store(ctx, rec)
	if err != nil {
		return MemoryOpsResult{}, fmt.Errorf("memory_ops: store: %w", err)
	}
	return MemoryOpsResult{Operation: "store", Stored: &stored}, nil
}

func runRecall(ctx context.Context, in Input) (MemoryOpsResult, error) {
	if in.Memory == nil || in.Embedder == nil {
		return MemoryOpsResult{}, fmt.Errorf("memory_ops: recall requires a configured Memory and Embedder")
	}
	query := stringParam(in.Params, "query", "")
	if query == "" {
		return MemoryOpsResult{}, fmt.Errorf("memory_ops: recall requires query")
	}
	userID := stringParam(in.Params, "user_id", "")
	embedModel := stringParam(in.Params, "embed_model", "")
	topK := intParam(in.Params, "top_k", 5)
	minSimilarity := floatParam(in.Params, "min_similarity", 0.5)

	embeddings, err := in.Embedder.EmbedText(ctx, embedModel, []string{query})
	if err != nil || len(embeddings) == 0 {
		return MemoryOpsResult{}, fmt.Errorf("memory_ops: embed query: %w", err)
	}

	recalled, err := in.Memory.Recall(ctx, embeddings[0], userID, topK, minSimilarity)
	if err != nil {
		return MemoryOpsResult{}, fmt.Errorf("memory_ops: recall: %w", err)
	}
	return MemoryOpsResult{Operation: "recall", Recalled: recalled}, nil
}

func floatParam(params map[string]any, key string, def float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}
