// Package config loads the Configuration surface described in spec.md §6:
// env vars (via godotenv.Overload), a YAML overlay, then hard-coded
// defaults, in that precedence order, mirroring the teacher's
// internal/config.Load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RetrieverConfig controls the Retriever and its cache.
type RetrieverConfig struct {
	WindowDefault            string `yaml:"window_default"`
	KFinalDefault            int    `yaml:"k_final_default"`
	EnableRerank             bool   `yaml:"enable_rerank"`
	AutoExpandWindow         bool   `yaml:"auto_expand_window"`
	RelaxFiltersOnEmpty      bool   `yaml:"relax_filters_on_empty"`
	FallbackRerankOffOnEmpty bool   `yaml:"fallback_rerank_off_on_empty"`
	CacheTTLSec              int    `yaml:"cache_ttl_sec"`
	VectorBackend            string `yaml:"vector_backend"` // postgres|qdrant
}

// BudgetConfig controls per-request and per-user limits.
type BudgetConfig struct {
	MaxTokensPerCommand       int     `yaml:"max_tokens_per_command"`
	MaxCostCentsPerCommand    float64 `yaml:"max_cost_cents_per_command"`
	MaxDurationSec            int     `yaml:"max_duration_sec"`
	MaxCommandsPerUserDaily   int     `yaml:"max_commands_per_user_daily"`
	MaxCostCentsPerUserDaily  float64 `yaml:"max_cost_cents_per_user_daily"`
}

// MemoryConfig controls the Memory Store's embedding backend.
type MemoryConfig struct {
	EmbeddingProvider string `yaml:"embedding_provider"`
	EmbeddingDim      int    `yaml:"embedding_dim"`
}

// PolicyConfig controls the Policy Validator.
type PolicyConfig struct {
	PIIMaskEnabled  bool     `yaml:"pii_mask_enabled"`
	DomainWhitelist []string `yaml:"domain_whitelist"`
	DomainBlacklist []string `yaml:"domain_blacklist"`
}

// BackendConfig selects a storage backend (memory|auto|postgres|qdrant|none) and its DSN.
type BackendConfig struct {
	Backend    string
	DSN        string
	Dimensions int
	Metric     string
}

// DBConfig resolves storage backends (mirrors the teacher's databases.NewManager inputs).
type DBConfig struct {
	DefaultDSN string
	Search     BackendConfig
	Vector     BackendConfig
	Graph      BackendConfig

	QdrantDSN        string
	QdrantCollection string
}

// ProviderConfig is per-provider connectivity (API keys, base URLs).
type ProviderConfig struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string
}

// TelemetryConfig controls OpenTelemetry wiring.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// Config is the fully resolved process configuration.
type Config struct {
	LogLevel  string
	LogPath   string
	RedisAddr string

	Retriever RetrieverConfig
	Budget    BudgetConfig
	Memory    MemoryConfig
	Policy    PolicyConfig
	DB        DBConfig
	Providers ProviderConfig
	Telemetry TelemetryConfig
}

// yamlOverlay is the subset of Config expressible in a YAML file; env vars
// and hard defaults fill in the rest.
type yamlOverlay struct {
	Retriever RetrieverConfig `yaml:"retriever"`
	Budget    BudgetConfig    `yaml:"budget"`
	Memory    MemoryConfig    `yaml:"memory"`
	Policy    PolicyConfig    `yaml:"policy"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Load resolves configuration: godotenv.Overload, then an optional YAML
// overlay at path (env NEWSBRIEF_CONFIG_FILE), then hard-coded defaults.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("NEWSBRIEF_CONFIG_FILE")); path != "" {
		if err := applyYAML(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load yaml overlay %s: %w", path, err)
		}
	}

	cfg.LogLevel = firstNonEmpty(os.Getenv("NEWSBRIEF_LOG_LEVEL"), cfg.LogLevel)
	cfg.LogPath = firstNonEmpty(os.Getenv("NEWSBRIEF_LOG_PATH"), cfg.LogPath)
	cfg.RedisAddr = firstNonEmpty(os.Getenv("NEWSBRIEF_REDIS_ADDR"), cfg.RedisAddr)

	cfg.DB.DefaultDSN = firstNonEmpty(os.Getenv("NEWSBRIEF_DB_DSN"), cfg.DB.DefaultDSN)
	cfg.DB.Search.DSN = firstNonEmpty(os.Getenv("NEWSBRIEF_SEARCH_DSN"), cfg.DB.Search.DSN)
	cfg.DB.Vector.DSN = firstNonEmpty(os.Getenv("NEWSBRIEF_VECTOR_DSN"), cfg.DB.Vector.DSN)
	cfg.DB.Graph.DSN = firstNonEmpty(os.Getenv("NEWSBRIEF_GRAPH_DSN"), cfg.DB.Graph.DSN)
	cfg.DB.QdrantDSN = firstNonEmpty(os.Getenv("NEWSBRIEF_QDRANT_DSN"), cfg.DB.QdrantDSN)
	cfg.DB.QdrantCollection = firstNonEmpty(os.Getenv("NEWSBRIEF_QDRANT_COLLECTION"), cfg.DB.QdrantCollection)
	if cfg.Retriever.VectorBackend != "" {
		cfg.DB.Vector.Backend = cfg.Retriever.VectorBackend
	}

	cfg.Providers.OpenAIAPIKey = firstNonEmpty(os.Getenv("OPENAI_API_KEY"), cfg.Providers.OpenAIAPIKey)
	cfg.Providers.AnthropicAPIKey = firstNonEmpty(os.Getenv("ANTHROPIC_API_KEY"), cfg.Providers.AnthropicAPIKey)
	cfg.Providers.GoogleAPIKey = firstNonEmpty(os.Getenv("GOOGLE_API_KEY"), cfg.Providers.GoogleAPIKey)

	if v := os.Getenv("NEWSBRIEF_RETRIEVER_K_FINAL_DEFAULT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retriever.KFinalDefault = n
		}
	}
	if v := os.Getenv("NEWSBRIEF_RETRIEVER_CACHE_TTL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retriever.CacheTTLSec = n
		}
	}
	if v := os.Getenv("NEWSBRIEF_BUDGET_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Budget.MaxTokensPerCommand = n
		}
	}

	return cfg, nil
}

func applyYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var ov yamlOverlay
	if err := yaml.Unmarshal(b, &ov); err != nil {
		return err
	}
	if ov.Retriever.WindowDefault != "" {
		cfg.Retriever = ov.Retriever
	}
	if ov.Budget.MaxTokensPerCommand != 0 {
		cfg.Budget = ov.Budget
	}
	if ov.Memory.EmbeddingDim != 0 {
		cfg.Memory = ov.Memory
	}
	if len(ov.Policy.DomainWhitelist) > 0 || len(ov.Policy.DomainBlacklist) > 0 {
		cfg.Policy = ov.Policy
	}
	if ov.Telemetry.ServiceName != "" {
		cfg.Telemetry = ov.Telemetry
	}
	return nil
}

func defaults() Config {
	return Config{
		LogLevel:  "info",
		RedisAddr: "localhost:6379",
		Retriever: RetrieverConfig{
			WindowDefault:            "24h",
			KFinalDefault:            6,
			EnableRerank:             true,
			AutoExpandWindow:         true,
			RelaxFiltersOnEmpty:      true,
			FallbackRerankOffOnEmpty: true,
			CacheTTLSec:              300,
			VectorBackend:            "postgres",
		},
		Budget: BudgetConfig{
			MaxTokensPerCommand:      8192,
			MaxCostCentsPerCommand:   50,
			MaxDurationSec:           20,
			MaxCommandsPerUserDaily:  200,
			MaxCostCentsPerUserDaily: 1000,
		},
		Memory: MemoryConfig{
			EmbeddingProvider: "google",
			EmbeddingDim:      1536,
		},
		Policy: PolicyConfig{
			PIIMaskEnabled: true,
		},
		DB: DBConfig{
			Search: BackendConfig{Backend: "memory"},
			Vector: BackendConfig{Backend: "postgres", Dimensions: 1536, Metric: "cosine"},
			Graph:  BackendConfig{Backend: "memory"},
		},
		Telemetry: TelemetryConfig{
			ServiceName: "newsbrief",
		},
	}
}

// MaxDuration returns Budget.MaxDurationSec as a time.Duration.
func (c BudgetConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationSec) * time.Second
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
