package scheduler

import (
	"context"
	"fmt"

	"hr_backoffice/platform/config"
	"hr_backoffice/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// PublicationRetrier republishes one outbox row.
type PublicationRetrier interface {
	RetryPublication(ctx context.Context, outboxID uuid.UUID) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	retrier PublicationRetrier
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, retrier PublicationRetrier, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server:  server,
		mux:     asynq.NewServeMux(),
		retrier: retrier,
		log:     log,
	}
	w.mux.HandleFunc(TaskIdentityPublicationRetry, w.handleIdentityPublicationRetry)

	return w, nil
}

func (w *Worker) handleIdentityPublicationRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseIdentityPublicationRetryPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return w.retrier.RetryPublication(ctx, outboxID)
}

// Run serves tasks until ctx is cancelled, then shuts the server down.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return err
	}

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
	return nil
}
