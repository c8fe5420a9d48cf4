package contextbuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsbrief/internal/model"
	"newsbrief/internal/retrieve"
)

// windowLadder is the auto-expansion sequence of spec.md §4.7 step 5.
var windowLadder = []string{"6h", "12h", "24h", "3d", "1w", "2w", "1m", "3m", "6m", "1y"}

func windowDuration(token string) (time.Duration, bool) {
	const day = 24 * time.Hour
	switch token {
	case "6h":
		return 6 * time.Hour, true
	case "12h":
		return 12 * time.Hour, true
	case "24h", "1d":
		return day, true
	case "3d":
		return 3 * day, true
	case "1w":
		return 7 * day, true
	case "2w":
		return 14 * day, true
	case "1m":
		return 30 * day, true
	case "3m":
		return 90 * day, true
	case "6m":
		return 180 * day, true
	case "1y":
		return 365 * day, true
	}
	return 0, false
}

// ladderIndex finds the ladder rung matching token's duration, used to
// resume the expansion walk at the next wider rung.
func ladderIndex(token string) int {
	d, ok := windowDuration(token)
	if !ok {
		return -1
	}
	for i, rung := range windowLadder {
		rd, _ := windowDuration(rung)
		if rd >= d {
			return i
		}
	}
	return len(windowLadder) - 1
}

// retrievalAttempt is the mutable set of retrieval params a recoveryStep
// adjusts between retries.
type retrievalAttempt struct {
	window    string
	language  string
	sources   []string
	kFinal    int
	useRerank bool
}

// skipCommands never call the Retriever: memory ops work off explicit
// content/query params and the Memory Store's own embedding-based
// recall. synthesize is documented as "optional" in spec.md §6's command
// table; this build chooses to retrieve for it too, so its conflict and
// recommendation insights have real documents to cite as evidence.
var skipCommands = map[string]bool{
	"memory_suggest": true,
	"memory_store":   true,
	"memory_recall":  true,
}

// retrieveWithRecovery performs spec.md §4.7 step 5: an initial attempt,
// then up to three recovery rungs (window expansion, filter relaxation,
// rerank fallback), each pushing a warning tag and recorded in the
// attempted-steps ladder used to build NO_DATA's tech_message.
func (b *Builder) retrieveWithRecovery(ctx context.Context, command string, params map[string]any) ([]model.Document, []string, string) {
	if skipsRetrieval(command, params) || skipCommands[command] {
		return nil, nil, ""
	}

	query, _ := params["query"].(string)
	attempt := retrievalAttempt{
		window:    stringField(params, "window"),
		language:  stringField(params, "language"),
		sources:   stringsField(params, "sources"),
		kFinal:    intField(params, "k_final"),
		useRerank: boolField(params, "use_rerank"),
	}

	var warnings []string
	var attempted []string

	docs, err := b.attemptRetrieve(ctx, query, attempt)
	attempted = append(attempted, "initial:"+attempt.window)
	if err == nil && len(docs) > 0 {
		return docs, warnings, ""
	}

	if b.Config.AutoExpandWindow {
		expansions := 0
		for i := ladderIndex(attempt.window) + 1; i < len(windowLadder) && expansions < 5; i++ {
			attempt.window = windowLadder[i]
			expansions++
			tag := "auto_expand_window:" + attempt.window
			attempted = append(attempted, tag)
			warnings = append(warnings, tag)

			docs, err = b.attemptRetrieve(ctx, query, attempt)
			if err == nil && len(docs) > 0 {
				return docs, warnings, ""
			}
		}
	}

	if b.Config.RelaxFiltersOnEmpty {
		attempt.language = "auto"
		attempt.sources = nil
		attempted = append(attempted, "relax_filters")
		warnings = append(warnings, "relax_filters")

		docs, err = b.attemptRetrieve(ctx, query, attempt)
		if err == nil && len(docs) > 0 {
			return docs, warnings, ""
		}
	}

	if b.Config.FallbackRerankOffOnEmpty {
		attempt.useRerank = false
		attempt.kFinal = 10
		attempted = append(attempted, "fallback_rerank_off")
		warnings = append(warnings, "fallback_rerank_off")

		docs, err = b.attemptRetrieve(ctx, query, attempt)
		if err == nil && len(docs) > 0 {
			return docs, warnings, ""
		}
	}

	return nil, warnings, fmt.Sprintf("no documents found after recovery ladder: %s", strings.Join(attempted, " -> "))
}

func (b *Builder) attemptRetrieve(ctx context.Context, query string, a retrievalAttempt) ([]model.Document, error) {
	if b.Retriever == nil {
		return nil, nil
	}
	dur, ok := windowDuration(a.window)
	if !ok {
		dur = 24 * time.Hour
	}
	end := b.now()
	window := retrieve.Window{Start: end.Add(-dur), End: end}
	return b.Retriever.Retrieve(ctx, query, window, a.language, a.sources, a.kFinal, a.useRerank)
}

func stringField(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func stringsField(params map[string]any, key string) []string {
	s, _ := params[key].([]string)
	return s
}

func intField(params map[string]any, key string) int {
	n, _ := params[key].(int)
	return n
}

func boolField(params map[string]any, key string) bool {
	v, _ := params[key].(bool)
	return v
}
