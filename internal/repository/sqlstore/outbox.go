package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

// outboxRepository appends events inside a workflow transaction.
type outboxRepository struct {
	c conn
}

func (r *outboxRepository) Append(ctx context.Context, events ...entity.Event) error {
	now := time.Now().UTC()
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		_, err = r.c.exec(ctx,
			"INSERT INTO outbox_events (event_id, stream_type, stream_id, event_type, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			uuid.NewString(), event.StreamType(), event.StreamID(), event.EventType(), string(payload), now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

// OutboxStore reads committed events for the relay. It runs outside workflow
// transactions.
type OutboxStore struct {
	c conn
}

// FetchPending returns up to limit unsent events, oldest first.
func (s *OutboxStore) FetchPending(ctx context.Context, limit int) ([]entity.OutboxRecord, error) {
	rows, err := s.c.query(ctx,
		"SELECT id, event_id, stream_type, stream_id, event_type, payload, created_at FROM outbox_events WHERE sent_at IS NULL ORDER BY id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var records []entity.OutboxRecord
	for rows.Next() {
		var (
			rec     entity.OutboxRecord
			payload []byte
			created nullTime
		)
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.StreamType, &rec.StreamID, &rec.EventType, &payload, &created); err != nil {
			return nil, fmt.Errorf("failed to scan outbox record: %w", err)
		}
		rec.Payload = payload
		rec.CreatedAt = created.Time
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox rows: %w", err)
	}
	return records, nil
}

// MarkSent stamps the given events as delivered.
func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, at.UTC())
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.c.exec(ctx,
		"UPDATE outbox_events SET sent_at = ? WHERE id IN ("+placeholders(len(ids))+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to mark outbox events sent: %w", err)
	}
	return nil
}
