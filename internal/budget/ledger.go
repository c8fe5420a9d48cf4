// Package budget implements the per-request Budget Ledger (spec.md §4.1)
// plus the Redis-backed mirroring and per-user daily quota counters added by
// SPEC_FULL.md, grounded on the teacher's internal/orchestrator/dedupe.go
// Redis TTL-keyed store pattern.
package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger tracks tokens, monetary cost, and elapsed time for one request. The
// Model Router is the single writer of Record, per spec.md §5; reads
// (CanAfford, RemainingRatio) take the same mutex so every observer sees a
// consistent snapshot.
type Ledger struct {
	mu sync.Mutex

	maxTokens     int
	maxCostCents  float64
	maxDuration   time.Duration
	startedAt     time.Time

	tokensUsed    int
	costCentsUsed float64
	warnings      []string
}

// New creates a Ledger with the given per-request limits, starting its clock now.
func New(maxTokens int, maxCostCents float64, maxDuration time.Duration) *Ledger {
	return &Ledger{
		maxTokens:    maxTokens,
		maxCostCents: maxCostCents,
		maxDuration:  maxDuration,
		startedAt:    time.Now(),
	}
}

// CanAfford reports whether adding the estimates would stay within every
// limit, including elapsed time.
func (l *Ledger) CanAfford(estimatedTokens int, estimatedCostCents float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.startedAt) >= l.maxDuration {
		return false
	}
	if l.maxTokens > 0 && l.tokensUsed+estimatedTokens > l.maxTokens {
		return false
	}
	if l.maxCostCents > 0 && l.costCentsUsed+estimatedCostCents > l.maxCostCents {
		return false
	}
	return true
}

// Record accumulates usage. It never rejects — exceeding a limit is a signal
// for the caller to consult CanAfford/RemainingRatio before the next call.
func (l *Ledger) Record(tokens int, costCents float64, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokensUsed += tokens
	l.costCentsUsed += costCents
}

// RemainingRatio returns the minimum of (limit-used)/limit across the three
// dimensions, in [0,1].
func (l *Ledger) RemainingRatio() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ratios := make([]float64, 0, 3)
	if l.maxTokens > 0 {
		ratios = append(ratios, clamp01(float64(l.maxTokens-l.tokensUsed)/float64(l.maxTokens)))
	}
	if l.maxCostCents > 0 {
		ratios = append(ratios, clamp01((l.maxCostCents-l.costCentsUsed)/l.maxCostCents))
	}
	if l.maxDuration > 0 {
		elapsed := time.Since(l.startedAt)
		ratios = append(ratios, clamp01(float64(l.maxDuration-elapsed)/float64(l.maxDuration)))
	}
	if len(ratios) == 0 {
		return 1
	}
	min := ratios[0]
	for _, r := range ratios[1:] {
		if r < min {
			min = r
		}
	}
	return min
}

// AddWarning accumulates a degradation/warning tag for the final response.
func (l *Ledger) AddWarning(tag string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, tag)
}

// Warnings returns a copy of the accumulated warning tags.
func (l *Ledger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.warnings))
	copy(out, l.warnings)
	return out
}

// Snapshot is a point-in-time read of ledger state, safe to mirror externally.
type Snapshot struct {
	TokensUsed    int
	CostCentsUsed float64
	Elapsed       time.Duration
	RemainingRatio float64
}

// Snapshot returns the current ledger state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	tokens, cost := l.tokensUsed, l.costCentsUsed
	elapsed := time.Since(l.startedAt)
	l.mu.Unlock()
	return Snapshot{TokensUsed: tokens, CostCentsUsed: cost, Elapsed: elapsed, RemainingRatio: l.RemainingRatio()}
}

// DegradedParams is the deterministic output of DegradePlan: a generic bag of
// parameter overrides keyed by name, plus the warning tags that should be
// attached to the final response alongside it.
type DegradedParams struct {
	Overrides map[string]any
	Warnings  []string
}

// DegradePlan applies the ratio-banded degradation table of spec.md §4.1 for
// the given command, using the ledger's current RemainingRatio.
func (l *Ledger) DegradePlan(command string) DegradedParams {
	ratio := l.RemainingRatio()
	switch {
	case ratio >= 0.5:
		return DegradedParams{}
	case ratio >= 0.3:
		return moderateDegradation(command)
	default:
		return aggressiveDegradation(command)
	}
}

func moderateDegradation(command string) DegradedParams {
	switch command {
	case "ask":
		return DegradedParams{
			Overrides: map[string]any{"self_check": false, "depth": 2},
			Warnings:  []string{"degradation_depth_reduced:2"},
		}
	case "graph":
		return DegradedParams{
			Overrides: map[string]any{"hop_limit": 2, "max_nodes": 120},
			Warnings:  []string{"degradation_graph_scope_reduced"},
		}
	default:
		return DegradedParams{}
	}
}

func aggressiveDegradation(command string) DegradedParams {
	switch command {
	case "ask":
		return DegradedParams{
			Overrides: map[string]any{"depth": 1, "self_check": false, "use_rerank": false},
			Warnings:  []string{"degradation_depth_reduced:1", "degradation_rerank_disabled"},
		}
	case "graph":
		return DegradedParams{
			Overrides: map[string]any{"hop_limit": 1, "max_nodes": 60, "max_edges": 180},
			Warnings:  []string{"degradation_graph_scope_reduced"},
		}
	case "events":
		return DegradedParams{
			Overrides: map[string]any{"k_final": 5, "skip_alt_interpretations": true},
			Warnings:  []string{"degradation_events_scope_reduced"},
		}
	case "memory":
		return DegradedParams{
			Overrides: map[string]any{"recall_only": true},
			Warnings:  []string{"degradation_memory_recall_only"},
		}
	default:
		return DegradedParams{}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Mirror is an optional Redis-backed read-only view of ledger state,
// purely for the /memory and dashboard surfaces to inspect a request
// mid-flight (SPEC_FULL.md's Budget Ledger expansion). The authoritative
// copy always stays in-process.
type Mirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMirror constructs a Mirror over an existing Redis client.
func NewMirror(client *redis.Client, ttl time.Duration) *Mirror {
	return &Mirror{client: client, ttl: ttl}
}

// Publish writes the ledger's snapshot under ledger:<correlationID>.
func (m *Mirror) Publish(ctx context.Context, correlationID string, snap Snapshot) error {
	key := "ledger:" + correlationID
	val := fmt.Sprintf("tokens=%d;cost_cents=%.2f;elapsed_ms=%d", snap.TokensUsed, snap.CostCentsUsed, snap.Elapsed.Milliseconds())
	return m.client.Set(ctx, key, val, m.ttl).Err()
}

// QuotaStore tracks per-user daily command/cost quotas independent of any
// single request's ledger, keyed by quota:<user_id>:<yyyy-mm-dd>:<dim>,
// where dim is "count" or "cost_cents".
type QuotaStore struct {
	client *redis.Client
}

// NewQuotaStore constructs a QuotaStore over an existing Redis client.
func NewQuotaStore(client *redis.Client) *QuotaStore {
	return &QuotaStore{client: client}
}

// RecordCommand increments the day's command count and cost for a user,
// expiring the counter at the end of the day.
func (q *QuotaStore) RecordCommand(ctx context.Context, userID string, costCents float64, day time.Time) error {
	if userID == "" {
		return nil
	}
	countKey := quotaKey(userID, day, "count")
	costKey := quotaKey(userID, day, "cost_cents")
	pipe := q.client.TxPipeline()
	pipe.Incr(ctx, countKey)
	pipe.IncrByFloat(ctx, costKey, costCents)
	ttl := time.Until(endOfDay(day))
	pipe.Expire(ctx, countKey, ttl)
	pipe.Expire(ctx, costKey, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Usage returns today's command count and cost-cents used for a user.
func (q *QuotaStore) Usage(ctx context.Context, userID string, day time.Time) (count int, costCents float64, err error) {
	countKey := quotaKey(userID, day, "count")
	costKey := quotaKey(userID, day, "cost_cents")
	countVal, err := q.client.Get(ctx, countKey).Int()
	if err != nil && err != redis.Nil {
		return 0, 0, err
	}
	costVal, err := q.client.Get(ctx, costKey).Float64()
	if err != nil && err != redis.Nil {
		return 0, 0, err
	}
	return countVal, costVal, nil
}

func quotaKey(userID string, day time.Time, dim string) string {
	return fmt.Sprintf("quota:%s:%s:%s", userID, day.Format("2006-01-02"), dim)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
