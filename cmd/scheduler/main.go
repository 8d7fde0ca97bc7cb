package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hr_backoffice/internal/accesscontrol/outbox"
	acservice "hr_backoffice/internal/accesscontrol/service"
	"hr_backoffice/internal/email"
	"hr_backoffice/internal/notification"
	"hr_backoffice/internal/scheduler"
	"hr_backoffice/platform/config"
	"hr_backoffice/platform/db"
	"hr_backoffice/platform/kafka"
	"hr_backoffice/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// The scheduler republishes identity events that the API could not deliver.
// It runs out of process, so it needs the broker to reach the consumers.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if !cfg.IsKafkaEnabled() {
		log.Error("KAFKA_BROKERS is required for the standalone scheduler")
		os.Exit(1)
	}
	if cfg.GetRedisURL() == "" {
		log.Error("REDIS_URL is required for the standalone scheduler")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.GetKafkaBrokers(), cfg.GetKafkaIdentityTopic(), log)
	defer func() { _ = producer.Close() }()

	repo := outbox.New(pool)
	alerts := notification.NewOperatorAlerts(email.NewSender(cfg), cfg.GetOperatorEmail(), log)

	// Republication only needs the outbox, the transport and the operator channel.
	retrier := acservice.New(acservice.Deps{
		Publisher: producer,
		Outbox:    repo,
		Alerts:    alerts,
		Log:       log,
	})

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	worker, err := scheduler.NewWorker(cfg, retrier, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	dispatcher := scheduler.NewPublicationOutboxDispatcher(repo, client, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
