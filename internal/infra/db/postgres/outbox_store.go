package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "deskrent/internal/app/outbox"
	infraoutbox "deskrent/internal/infra/outbox"
)

// OutboxStore writes events through the transaction of the current unit of work, so they
// commit with the aggregates that raised them. The relay side claims rows with SKIP LOCKED
// and can run on several instances.
type OutboxStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	const insert = `INSERT INTO outbox (id, name, payload, occurred_at, aggregate, headers, state, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	args := []any{record.ID, record.Name, record.Payload, record.OccurredAt.UTC(), record.Aggregate,
		headers, infraoutbox.StateNew, s.now()}
	if tx, ok := txFromContext(ctx); ok {
		_, err = tx.Exec(ctx, insert, args...)
	} else {
		_, err = s.pool.Exec(ctx, insert, args...)
	}
	if err != nil {
		return fmt.Errorf("postgres: insert outbox event: %w", err)
	}
	return nil
}

func (s *OutboxStore) Flush(context.Context) error {
	return nil
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	now := s.now()
	row := s.pool.QueryRow(ctx, `UPDATE outbox SET state = $1, claimed_by = $2, claimed_at = $3
		WHERE id = (
			SELECT id FROM outbox
			WHERE state IN ($4, $5) AND next_attempt_at <= $3
			ORDER BY next_attempt_at, occurred_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, payload, occurred_at, aggregate, headers, state, attempts, next_attempt_at,
			claimed_by, claimed_at, last_error`,
		infraoutbox.StateClaimed, workerID, now, infraoutbox.StateNew, infraoutbox.StateFailed)

	var (
		doc     infraoutbox.EventDocument
		headers []byte
	)
	err := row.Scan(&doc.ID, &doc.Name, &doc.Payload, &doc.OccurredAt, &doc.Aggregate, &headers, &doc.State,
		&doc.Attempts, &doc.NextAttempt, &doc.ClaimedBy, &doc.ClaimedAt, &doc.LastError)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: claim outbox event: %w", err)
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &doc.Headers); err != nil {
			return nil, fmt.Errorf("postgres: decode outbox headers: %w", err)
		}
	}
	doc.OccurredAt = doc.OccurredAt.UTC()
	doc.NextAttempt = doc.NextAttempt.UTC()
	doc.ClaimedAt = doc.ClaimedAt.UTC()
	return &doc, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET state = $2, sent_at = $3 WHERE id = $1`,
		id, infraoutbox.StateSent, s.now())
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET state = $2, next_attempt_at = $3, last_error = $4,
		attempts = attempts + 1 WHERE id = $1`,
		id, infraoutbox.StateFailed, next.UTC(), errMsg)
	return err
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
