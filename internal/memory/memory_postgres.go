package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"newsbrief/internal/model"
)

// PostgresStore persists MemoryRecords in a pgvector-backed
// memory_records table (spec.md §6's schema), grounded on the teacher's
// postgres_vector.go pool-per-store pattern.
type PostgresStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewPostgresStore ensures the memory_records table/indexes exist and
// returns a Store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool, dimensions int) *PostgresStore {
	ctx := context.Background()
	_, _ = pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	vecType := "vector"
	if dimensions > 0 {
		vecType = fmt.Sprintf("vector(%d)", dimensions)
	}
	_, _ = pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS memory_records (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  content TEXT NOT NULL,
  embedding %s,
  importance DOUBLE PRECISION NOT NULL DEFAULT 0,
  ttl_days INT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL,
  accessed_at TIMESTAMPTZ NOT NULL,
  access_count INT NOT NULL DEFAULT 0,
  refs TEXT[] NOT NULL DEFAULT '{}',
  user_id TEXT NOT NULL DEFAULT '',
  tags TEXT[] NOT NULL DEFAULT '{}',
  deleted_at TIMESTAMPTZ
);
`, vecType))
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS memory_records_user_type_expires_idx ON memory_records(user_id, type, expires_at)`)
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS memory_records_tags_idx ON memory_records USING GIN(tags)`)
	return &PostgresStore{pool: pool, dimensions: dimensions}
}

func (p *PostgresStore) Store(ctx context.Context, rec model.MemoryRecord) (model.MemoryRecord, error) {
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

	_, err := p.pool.Exec(ctx, `
INSERT INTO memory_records(id, type, content, embedding, importance, ttl_days, created_at, expires_at, accessed_at, access_count, refs, user_id, tags, deleted_at)
VALUES ($1,$2,$3,$4::vector,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
  type=EXCLUDED.type, content=EXCLUDED.content, embedding=EXCLUDED.embedding,
  importance=EXCLUDED.importance, ttl_days=EXCLUDED.ttl_days, expires_at=EXCLUDED.expires_at
`, rec.ID, string(rec.Type), rec.Content, toVectorLiteral(rec.Embedding), rec.Importance, rec.TTLDays,
		rec.CreatedAt, rec.ExpiresAt, rec.AccessedAt, rec.AccessCount, rec.Refs, rec.UserID, rec.Tags, rec.DeletedAt)
	if err != nil {
		return model.MemoryRecord{}, fmt.Errorf("memory: store: %w", err)
	}
	return rec, nil
}

func (p *PostgresStore) Recall(ctx context.Context, queryEmbedding []float32, userID string, topK int, minSimilarity float64) ([]model.MemoryRecord, error) {
	if topK <= 0 {
		topK = 5
	}
	q := normalize(queryEmbedding)
	vecLit := toVectorLiteral(q)

	where := "WHERE deleted_at IS NULL AND expires_at > now()"
	args := []any{vecLit, minSimilarity, topK}
	if userID != "" {
		where += " AND user_id = $4"
		args = append(args, userID)
	}

	query := fmt.Sprintf(`
SELECT id, type, content, embedding, importance, ttl_days, created_at, expires_at, accessed_at, access_count, refs, user_id, tags, deleted_at,
       1 - (embedding <=> $1::vector) AS similarity
FROM memory_records
%s
AND (1 - (embedding <=> $1::vector)) >= $2
ORDER BY similarity DESC
LIMIT $3
`, where)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: recall: %w", err)
	}
	defer rows.Close()

	var out []model.MemoryRecord
	var ids []string
	for rows.Next() {
		var rec model.MemoryRecord
		var typ string
		var similarity float64
		if err := rows.Scan(&rec.ID, &typ, &rec.Content, &rec.Embedding, &rec.Importance, &rec.TTLDays,
			&rec.CreatedAt, &rec.ExpiresAt, &rec.AccessedAt, &rec.AccessCount, &rec.Refs, &rec.UserID, &rec.Tags, &rec.DeletedAt, &similarity); err != nil {
			return nil, fmt.Errorf("memory: recall scan: %w", err)
		}
		rec.Type = model.MemoryRecordType(typ)
		out = append(out, rec)
		ids = append(ids, rec.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		_, _ = p.pool.Exec(ctx, `UPDATE memory_records SET accessed_at = now(), access_count = access_count + 1 WHERE id = ANY($1)`, ids)
	}
	return out, nil
}

func (p *PostgresStore) GetByID(ctx context.Context, id string) (model.MemoryRecord, bool, error) {
	var rec model.MemoryRecord
	var typ string
	err := p.pool.QueryRow(ctx, `
SELECT id, type, content, embedding, importance, ttl_days, created_at, expires_at, accessed_at, access_count, refs, user_id, tags, deleted_at
FROM memory_records WHERE id = $1
`, id).Scan(&rec.ID, &typ, &rec.Content, &rec.Embedding, &rec.Importance, &rec.TTLDays,
		&rec.CreatedAt, &rec.ExpiresAt, &rec.AccessedAt, &rec.AccessCount, &rec.Refs, &rec.UserID, &rec.Tags, &rec.DeletedAt)
	if err != nil {
		return model.MemoryRecord{}, false, nil
	}
	rec.Type = model.MemoryRecordType(typ)
	return rec, true, nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `UPDATE memory_records SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("memory: delete: %w", err)
	}
	return nil
}

func (p *PostgresStore) CleanupExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `UPDATE memory_records SET deleted_at = $1 WHERE deleted_at IS NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("memory: cleanup_expired: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func toVectorLiteral(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", x)
	}
	b.WriteByte(']')
	return b.String()
}
