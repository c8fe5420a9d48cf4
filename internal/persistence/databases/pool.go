package databases

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPool creates a Postgres connection pool using newPgPool's standard
// defaults. Exported so the Memory Store (internal/memory) can share a
// pool with the search/vector/graph backends instead of opening its own.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return newPgPool(ctx, dsn)
}
