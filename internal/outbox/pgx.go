package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

// PgxStore reads the Postgres outbox over its own pgx pool, so relay polling does not
// compete with workflow transactions for database/sql connections.
type PgxStore struct {
	pool *pgxpool.Pool
}

func NewPgxStore(ctx context.Context, dsn string) (*PgxStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PgxStore{pool: pool}, nil
}

func (s *PgxStore) Close() {
	s.pool.Close()
}

func (s *PgxStore) FetchPending(ctx context.Context, limit int) ([]entity.OutboxRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id::text, stream_type, stream_id, event_type, payload, created_at
		FROM outbox_events WHERE sent_at IS NULL ORDER BY id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var out []entity.OutboxRecord
	for rows.Next() {
		var rec entity.OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.StreamType, &rec.StreamID, &rec.EventType, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PgxStore) MarkSent(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `UPDATE outbox_events SET sent_at = $1 WHERE id = ANY($2)`, at.UTC(), ids)
	if err != nil {
		return fmt.Errorf("failed to mark outbox events sent: %w", err)
	}
	return nil
}
