// Package outbox persists identity events whose publication failed so they
// can be republished later. A row exists only for events that missed the
// transport on the first attempt.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hr_backoffice/internal/events"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusEnqueued       Status = "enqueued"
	StatusProcessing     Status = "processing"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	errRepoNotConfigured        = "outbox repository not configured"
)

// ErrNotFound is returned when an outbox row does not exist.
var ErrNotFound = errors.New("outbox record not found")

type Record struct {
	ID       uuid.UUID
	Event    events.IdentityCreated
	RunAt    time.Time
	Status   Status
	Attempts int
}

type InsertParams struct {
	Event     events.IdentityCreated
	RunAt     time.Time
	LastError *string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `id, tenant_id, event_id, employee_id, external_identity_id, email, occurred_at, run_at, status, attempts`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var status string
	err := row.Scan(&rec.ID, &rec.Event.TenantID, &rec.Event.EventID, &rec.Event.EmployeeID,
		&rec.Event.ExternalIdentityID, &rec.Event.Email, &rec.Event.Timestamp, &rec.RunAt, &status, &rec.Attempts)
	if err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}

// Insert stores a pending row. Inserting the same event twice returns the
// existing row id; a row that already settled is reopened as pending.
func (r *Repository) Insert(ctx context.Context, p InsertParams) (uuid.UUID, error) {
	if r == nil || r.pool == nil {
		return uuid.Nil, errors.New(errRepoNotConfigured)
	}
	if err := p.Event.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("outbox insert: %w", err)
	}
	if p.RunAt.IsZero() {
		p.RunAt = time.Now().UTC()
	}

	evt := p.Event
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO identity_publication_outbox AS o
		 (tenant_id, event_id, employee_id, external_identity_id, email, occurred_at, run_at, status, last_error)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
		 ON CONFLICT (event_id) DO UPDATE SET
		   status     = CASE WHEN o.status IN ('succeeded', 'failed') THEN 'pending' ELSE o.status END,
		   attempts   = CASE WHEN o.status IN ('succeeded', 'failed') THEN 0 ELSE o.attempts END,
		   run_at     = CASE WHEN o.status IN ('succeeded', 'failed') THEN EXCLUDED.run_at ELSE o.run_at END,
		   last_error = EXCLUDED.last_error,
		   updated_at = now()
		 RETURNING id`,
		evt.TenantID, evt.EventID, evt.EmployeeID, evt.ExternalIdentityID, evt.Email, evt.Timestamp, p.RunAt, p.LastError,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	if r == nil || r.pool == nil {
		return Record{}, errors.New(errRepoNotConfigured)
	}

	rec, err := scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM identity_publication_outbox WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// ClaimPending moves due pending rows to enqueued. Rows are locked with SKIP
// LOCKED so concurrent dispatchers never claim the same row.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]Record, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errRepoNotConfigured)
	}
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT id
		FROM identity_publication_outbox
		WHERE status = 'pending' AND run_at <= now()
		ORDER BY occurred_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE identity_publication_outbox o
	SET status = 'enqueued', updated_at = now()
	FROM cte
	WHERE o.id = cte.id
	RETURNING o.id, o.tenant_id, o.event_id, o.employee_id, o.external_identity_id, o.email, o.occurred_at, o.run_at, o.status, o.attempts`, limit)
	if err != nil {
		return nil, err
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// MarkPending returns a row to the queue, due at runAt.
func (r *Repository) MarkPending(ctx context.Context, id uuid.UUID, runAt time.Time, lastError *string) error {
	return r.exec(ctx,
		`UPDATE identity_publication_outbox
		 SET status = 'pending', run_at = $2, last_error = $3, updated_at = now()
		 WHERE id = $1`,
		id, runAt, lastError,
	)
}

func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx,
		`UPDATE identity_publication_outbox
		 SET status = 'processing', attempts = attempts + 1, updated_at = now()
		 WHERE id = $1`,
		id,
	)
}

func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx,
		`UPDATE identity_publication_outbox
		 SET status = 'succeeded', last_error = NULL, updated_at = now()
		 WHERE id = $1`,
		id,
	)
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.exec(ctx,
		`UPDATE identity_publication_outbox
		 SET status = 'failed', last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, lastError,
	)
}

func (r *Repository) exec(ctx context.Context, sql string, args ...any) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx, sql, args...)
	return err
}
