// Command newsbriefd is the Orchestrator's process entry point: it wires
// configuration, providers, storage backends, and the Context
// Builder/Pipeline/Orchestrator chain behind an HTTP command surface and
// the §6 /retrieve API, mirroring the teacher's cmd/agentd plain
// net/http + zerolog server shape.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"newsbrief/internal/agents"
	"newsbrief/internal/config"
	"newsbrief/internal/contextbuilder"
	"newsbrief/internal/llm"
	"newsbrief/internal/llm/providers"
	"newsbrief/internal/memory"
	"newsbrief/internal/observability"
	"newsbrief/internal/orchestrator"
	"newsbrief/internal/persistence/databases"
	"newsbrief/internal/pipeline"
	"newsbrief/internal/policy"
	"newsbrief/internal/retrieve"
	"newsbrief/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("newsbriefd")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx := context.Background()

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}
	metrics := telemetry.NewOtelMetrics()

	dbs, err := databases.NewManager(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("init databases: %w", err)
	}
	defer dbs.Close()

	llmProviders, embedder, err := providers.BuildAll(cfg.Providers, nil)
	if err != nil {
		return fmt.Errorf("init providers: %w", err)
	}
	router := llm.NewRouter(llmProviders)

	var cache *retrieve.Cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if perr := redisClient.Ping(ctx).Err(); perr != nil {
			log.Warn().Err(perr).Msg("redis ping failed, continuing without a retrieval cache")
		} else {
			cache = retrieve.NewCache(redisClient, time.Duration(cfg.Retriever.CacheTTLSec)*time.Second)
		}
	}

	retriever := &retrieve.Retriever{
		Search:     dbs.Search,
		Vector:     dbs.Vector,
		Embedder:   embedder,
		EmbedModel: cfg.Memory.EmbeddingProvider,
		Reranker:   retrieve.TermOverlapReranker{},
		Cache:      cache,
		Metrics:    metrics,
	}
	if !cfg.Retriever.EnableRerank {
		retriever.Reranker = retrieve.NoopReranker{}
	}

	builder := contextbuilder.New(retriever, cfg)
	builder.Metrics = metrics

	var memStore memory.Store
	if cfg.DB.DefaultDSN != "" || cfg.DB.Vector.DSN != "" {
		pool, perr := databases.OpenPool(ctx, firstNonEmpty(cfg.DB.DefaultDSN, cfg.DB.Vector.DSN))
		if perr != nil {
			log.Warn().Err(perr).Msg("memory store postgres pool failed, falling back to in-memory store")
			memStore = memory.NewInMemoryStore()
		} else {
			memStore = memory.NewPostgresStore(pool, cfg.Memory.EmbeddingDim)
		}
	} else {
		memStore = memory.NewInMemoryStore()
	}

	validator := policy.New(cfg.Policy.DomainWhitelist, cfg.Policy.DomainBlacklist)
	pl := pipeline.New(validator)

	orch := orchestrator.New(builder, pl, agents.Input{Router: router, Retriever: retriever}, dbs.Graph, memStore, embedder)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { fmt.Fprintln(w, "ok") })
	mux.HandleFunc("/command", commandHandler(orch))
	mux.HandleFunc("/retrieve", retrieveHandler(retriever))

	addr := firstNonEmpty(os.Getenv("NEWSBRIEF_HTTP_ADDR"), ":8089")
	log.Info().Str("addr", addr).Msg("newsbriefd listening")
	return http.ListenAndServe(addr, mux)
}

func commandHandler(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var cmd orchestrator.CommandEnvelope
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		resp := orch.Dispatch(r.Context(), cmd)
		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "error" {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// retrieveRequest/retrieveResponse implement spec.md §6's
// POST /retrieve {query, hours, k, filters{sources, lang}, cursor,
// correlation_id} -> {items[], next_cursor, coverage, freshness_stats}.
type retrieveRequest struct {
	Query         string   `json:"query"`
	Hours         int      `json:"hours"`
	K             int      `json:"k"`
	Filters       struct {
		Sources []string `json:"sources"`
		Lang    string   `json:"lang"`
	} `json:"filters"`
	Cursor        string `json:"cursor"`
	CorrelationID string `json:"correlation_id"`
}

type retrieveItem struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	TS      string  `json:"ts"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

type retrieveResponse struct {
	Items          []retrieveItem `json:"items"`
	NextCursor     string         `json:"next_cursor"`
	Coverage       float64        `json:"coverage"`
	FreshnessStats struct {
		MedianSec float64 `json:"median_sec"`
	} `json:"freshness_stats"`
}

func retrieveHandler(r *retrieve.Retriever) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var in retrieveRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		hours := in.Hours
		if hours <= 0 {
			hours = 24
		}
		k := in.K
		if k <= 0 || k > 50 {
			k = 10
		}
		offset := decodeCursor(in.Cursor)

		window := retrieve.Window{Start: time.Now().Add(-time.Duration(hours) * time.Hour), End: time.Now()}
		docs, err := r.Retrieve(req.Context(), in.Query, window, in.Filters.Lang, in.Filters.Sources, k+offset, true)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if offset > len(docs) {
			offset = len(docs)
		}
		page := docs[offset:]
		if len(page) > k {
			page = page[:k]
		}

		out := retrieveResponse{Items: make([]retrieveItem, 0, len(page))}
		for _, d := range page {
			out.Items = append(out.Items, retrieveItem{
				ID: d.ArticleID, Title: d.Title, URL: d.URL, Snippet: d.Snippet,
				TS: d.PublishedDate, Source: domainOf(d.URL), Score: d.Score,
			})
		}
		if offset+len(page) < len(docs) {
			out.NextCursor = encodeCursor(offset + len(page))
		}
		if len(docs) > 0 {
			out.Coverage = 1.0
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

// decodeCursor/encodeCursor implement the opaque base64 {offset:int}
// cursor of spec.md §6; pagination is stateless.
type cursorPayload struct {
	Offset int `json:"offset"`
}

func decodeCursor(s string) int {
	if s == "" {
		return 0
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return 0
	}
	var c cursorPayload
	if err := json.Unmarshal(raw, &c); err != nil {
		return 0
	}
	return c.Offset
}

func encodeCursor(offset int) string {
	raw, _ := json.Marshal(cursorPayload{Offset: offset})
	return base64.StdEncoding.EncodeToString(raw)
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
