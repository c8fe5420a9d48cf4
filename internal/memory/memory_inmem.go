package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"newsbrief/internal/model"
)

// InMemoryStore is a mutex-guarded map + linear cosine scan, mirroring
// the teacher's memory_vector.go, generalized with the TTL/soft-delete/
// importance lifecycle spec.md §4.6 requires. Used in tests and as a
// local-dev fallback when no Postgres DSN is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.MemoryRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]model.MemoryRecord)}
}

func (s *InMemoryStore) Store(_ context.Context, rec model.MemoryRecord) (model.MemoryRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.TTLDays <= 0 {
		return model.MemoryRecord{}, fmt.Errorf("memory: ttl_days must be positive")
	}
	rec.ExpiresAt = rec.CreatedAt.AddDate(0, 0, rec.TTLDays)
	rec.Embedding = normalize(rec.Embedding)
	rec.AccessedAt = rec.CreatedAt
	rec.AccessCount = 0
	rec.DeletedAt = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return rec, nil
}

func (s *InMemoryStore) Recall(_ context.Context, queryEmbedding []float32, userID string, topK int, minSimilarity float64) ([]model.MemoryRecord, error) {
	if topK <= 0 {
		topK = 5
	}
	q := normalize(queryEmbedding)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	type scored struct {
		rec        model.MemoryRecord
		similarity float64
	}
	var candidates []scored
	for id, rec := range s.records {
		if rec.Lifecycle(now) != model.MemoryActive {
			continue
		}
		if userID != "" && rec.UserID != userID {
			continue
		}
		sim := cosineSim(q, rec.Embedding)
		if sim < minSimilarity {
			continue
		}
		candidates = append(candidates, scored{rec: rec, similarity: sim})
		_ = id
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].similarity > candidates[j].similarity })
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]model.MemoryRecord, 0, len(candidates))
	for _, c := range candidates {
		rec := s.records[c.rec.ID]
		rec.AccessedAt = now
		rec.AccessCount++
		s.records[rec.ID] = rec
		out = append(out, rec)
	}
	return out, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (model.MemoryRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("memory: record %q not found", id)
	}
	if rec.DeletedAt == nil {
		now := time.Now().UTC()
		rec.DeletedAt = &now
		s.records[id] = rec
	}
	return nil
}

func (s *InMemoryStore) CleanupExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.records {
		if rec.DeletedAt != nil {
			continue
		}
		if now.After(rec.ExpiresAt) {
			deletedAt := now
			rec.DeletedAt = &deletedAt
			s.records[id] = rec
			n++
		}
	}
	return n, nil
}
