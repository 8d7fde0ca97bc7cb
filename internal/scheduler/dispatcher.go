package scheduler

import (
	"context"
	"fmt"
	"time"

	"hr_backoffice/internal/accesscontrol/outbox"
	"hr_backoffice/platform/logger"

	"github.com/google/uuid"
)

const (
	dispatchInterval = 2 * time.Second
	dispatchBatch    = 50
	requeueDelay     = 30 * time.Second
)

// PendingOutbox is the outbox view the dispatcher needs.
type PendingOutbox interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, runAt time.Time, lastError *string) error
}

// RetryEnqueuer schedules republication tasks.
type RetryEnqueuer interface {
	EnqueuePublicationRetry(ctx context.Context, payload IdentityPublicationRetryPayload, runAt time.Time, taskID string) error
}

// PublicationOutboxDispatcher moves due outbox rows onto the task queue.
type PublicationOutboxDispatcher struct {
	repo     PendingOutbox
	enqueuer RetryEnqueuer
	log      *logger.Logger
	interval time.Duration
}

func NewPublicationOutboxDispatcher(repo PendingOutbox, enqueuer RetryEnqueuer, log *logger.Logger) *PublicationOutboxDispatcher {
	if log == nil {
		log = logger.Discard()
	}
	return &PublicationOutboxDispatcher{repo: repo, enqueuer: enqueuer, log: log, interval: dispatchInterval}
}

func (d *PublicationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.repo == nil || d.enqueuer == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := d.DispatchOnce(ctx); err != nil {
			d.log.Warn("outbox claim failed", "error", err)
		}
	}
}

// DispatchOnce claims one batch and enqueues a task per row. Rows that cannot
// be enqueued go back to pending.
func (d *PublicationOutboxDispatcher) DispatchOnce(ctx context.Context) (int, error) {
	records, err := d.repo.ClaimPending(ctx, dispatchBatch)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, rec := range records {
		payload := IdentityPublicationRetryPayload{
			OutboxID:   rec.ID.String(),
			TenantID:   rec.Event.TenantID,
			EmployeeID: rec.Event.EmployeeID,
		}
		taskID := fmt.Sprintf("%s:%d", rec.ID, rec.Attempts)

		if err := d.enqueuer.EnqueuePublicationRetry(ctx, payload, rec.RunAt, taskID); err != nil {
			msg := err.Error()
			if markErr := d.repo.MarkPending(ctx, rec.ID, time.Now().UTC().Add(requeueDelay), &msg); markErr != nil {
				d.log.DatabaseError("requeue identity publication outbox", markErr)
			}
			continue
		}
		enqueued++
	}
	return enqueued, nil
}
