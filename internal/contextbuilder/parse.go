package contextbuilder

import (
	"fmt"
	"strconv"
	"strings"

	"newsbrief/internal/config"
)

// commandTable is the canonical-token lookup of spec.md §4.7 step 1 /
// §6's command surface.
var commandTable = map[string]string{
	"/trends":               "trends",
	"/analyze keywords":     "analyze_keywords",
	"/analyze sentiment":    "analyze_sentiment",
	"/analyze topics":       "analyze_topics",
	"/analyze competitors":  "analyze_competitors",
	"/predict trends":       "predict_trends",
	"/synthesize":           "synthesize",
	"/ask":                  "ask",
	"/events link":          "events_link",
	"/graph query":          "graph_query",
	"/memory suggest":       "memory_suggest",
	"/memory store":         "memory_store",
	"/memory recall":        "memory_recall",
	"/search":               "search",
}

func normalizeCommand(raw string) (string, bool) {
	token := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(raw))), " ")
	cmd, ok := commandTable[token]
	return cmd, ok
}

var validWindows = map[string]bool{
	"6h": true, "12h": true, "24h": true, "1d": true, "3d": true,
	"1w": true, "2w": true, "1m": true, "3m": true, "6m": true, "1y": true,
}

var validLangs = map[string]bool{"ru": true, "en": true, "auto": true}

// parsedArgs is the fixed-grammar result of step 2.
type parsedArgs struct {
	Window    string
	Lang      string
	Sources   []string
	Topic     string
	Entity    string
	Query     string
	K         int
	HasK      bool
	Rerank    *bool
	Depth     int
	HasDepth  bool
	Hops      int
	HasHops   bool
	Domains   []string
	Niche     string
	UserID    string
	Operation string
	Hours     int
	HasHours  bool
	Cursor    string
}

// parseArgs validates each recognized key against the fixed grammar of
// spec.md §4.7 step 2. Unrecognized keys are ignored rather than
// rejected, since commands pass through keys other commands don't use.
func parseArgs(args map[string]string) (parsedArgs, error) {
	var out parsedArgs
	for key, val := range args {
		switch key {
		case "window":
			if !validWindows[val] {
				return parsedArgs{}, fmt.Errorf("invalid window %q", val)
			}
			out.Window = val
		case "lang":
			if !validLangs[val] {
				return parsedArgs{}, fmt.Errorf("invalid lang %q", val)
			}
			out.Lang = val
		case "sources":
			out.Sources = splitNonEmpty(val, ",")
		case "domains":
			out.Domains = splitNonEmpty(val, ",")
		case "topic":
			out.Topic = val
		case "entity":
			out.Entity = val
		case "niche":
			out.Niche = val
		case "query":
			out.Query = val
		case "user_id":
			out.UserID = val
		case "operation":
			out.Operation = val
		case "cursor":
			out.Cursor = val
		case "k":
			n, err := strconv.Atoi(val)
			if err != nil {
				return parsedArgs{}, fmt.Errorf("invalid k %q: %w", val, err)
			}
			if n < 5 {
				n = 5
			}
			if n > 10 {
				n = 10
			}
			out.K, out.HasK = n, true
		case "hours":
			n, err := strconv.Atoi(val)
			if err != nil {
				return parsedArgs{}, fmt.Errorf("invalid hours %q: %w", val, err)
			}
			out.Hours, out.HasHours = n, true
		case "depth":
			n, err := strconv.Atoi(val)
			if err != nil {
				return parsedArgs{}, fmt.Errorf("invalid depth %q: %w", val, err)
			}
			if n < 1 {
				n = 1
			}
			if n > 3 {
				n = 3
			}
			out.Depth, out.HasDepth = n, true
		case "hops":
			n, err := strconv.Atoi(val)
			if err != nil {
				return parsedArgs{}, fmt.Errorf("invalid hops %q: %w", val, err)
			}
			if n < 1 {
				n = 1
			}
			if n > 4 {
				n = 4
			}
			out.Hops, out.HasHops = n, true
		case "rerank":
			t := true
			out.Rerank = &t
		case "no-rerank":
			f := false
			out.Rerank = &f
		}
	}
	return out, nil
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// buildParams overlays the parsed args on the configured defaults
// (spec.md §4.7 step 3), deriving the retrieval query from
// query | topic | entity | "latest news" in priority order.
func buildParams(command string, p parsedArgs, defaults config.RetrieverConfig) map[string]any {
	window := p.Window
	if window == "" {
		window = defaults.WindowDefault
	}
	lang := p.Lang
	if lang == "" {
		lang = "auto"
	}
	kFinal := defaults.KFinalDefault
	if p.HasK {
		kFinal = p.K
	}
	if kFinal < 5 {
		kFinal = 5
	}
	if kFinal > 10 {
		kFinal = 10
	}
	useRerank := defaults.EnableRerank
	if p.Rerank != nil {
		useRerank = *p.Rerank
	}

	query := p.Query
	if query == "" {
		query = p.Topic
	}
	if query == "" {
		query = p.Entity
	}
	if query == "" {
		query = "latest news"
	}

	params := map[string]any{
		"window":     window,
		"language":   lang,
		"sources":    p.Sources,
		"k_final":    kFinal,
		"use_rerank": useRerank,
		"query":      query,
		"topic":      p.Topic,
		"entity":     p.Entity,
	}
	if p.HasDepth {
		params["depth"] = p.Depth
	}
	if p.HasHops {
		params["hops"] = p.Hops
	}
	if len(p.Domains) > 0 {
		params["domains"] = p.Domains
	}
	if p.Niche != "" {
		params["niche"] = p.Niche
	}
	if p.UserID != "" {
		params["user_id"] = p.UserID
	}
	if p.Operation != "" {
		params["operation"] = p.Operation
	}
	if p.HasHours {
		params["hours"] = p.Hours
	}
	if p.Cursor != "" {
		params["cursor"] = p.Cursor
	}
	_ = command
	return params
}
