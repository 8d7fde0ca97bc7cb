package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hr_backoffice/internal/access"
	"hr_backoffice/internal/accesscontrol"
	"hr_backoffice/internal/accesscontrol/keycloak"
	"hr_backoffice/internal/accesscontrol/outbox"
	acservice "hr_backoffice/internal/accesscontrol/service"
	"hr_backoffice/internal/adapters"
	"hr_backoffice/internal/email"
	"hr_backoffice/internal/events"
	apphttp "hr_backoffice/internal/http"
	"hr_backoffice/internal/http/router"
	"hr_backoffice/internal/notification"
	"hr_backoffice/internal/organization"
	orgrepo "hr_backoffice/internal/organization/repository"
	"hr_backoffice/internal/people"
	peoplerepo "hr_backoffice/internal/people/repository"
	"hr_backoffice/internal/scheduler"
	"hr_backoffice/migrations"
	"hr_backoffice/platform/config"
	"hr_backoffice/platform/db"
	"hr_backoffice/platform/kafka"
	"hr_backoffice/platform/locker"
	"hr_backoffice/platform/logger"
	"hr_backoffice/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	linkLockTTL     = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for in-process delivery; one serial lane per employee key
	eventBus := events.NewInMemoryBus(log, cfg.GetEventBusLanes())

	locks, closeLocks := initLocker(cfg, log)
	defer closeLocks()

	// Identity events leave the process through Kafka when brokers are configured
	var identityPublisher events.Publisher = eventBus
	if cfg.IsKafkaEnabled() {
		producer := kafka.NewProducer(cfg.GetKafkaBrokers(), cfg.GetKafkaIdentityTopic(), log)
		defer func() { _ = producer.Close() }()
		identityPublisher = producer
		log.Info("kafka identity transport enabled", "topic", cfg.GetKafkaIdentityTopic())
	}

	val := validator.New(cfg.GetPhoneDefaultRegion())
	accessValidator := access.NewValidator(log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Operator alerts subscribe to domain events (not HTTP-facing)
	alerts := notification.NewOperatorAlerts(email.NewSender(cfg), cfg.GetOperatorEmail(), log)
	alerts.RegisterHandlers(eventBus)

	peopleModule := people.NewModule(peoplerepo.New(pool), accessValidator, eventBus, locks, val, log, cfg.GetPhoneDefaultRegion())
	organizationModule := organization.NewModule(orgrepo.New(pool), accessValidator, val)

	publicationOutbox := outbox.New(pool)
	accessControlModule := accesscontrol.NewModule(acservice.Deps{
		Directory: adapters.NewEmployeeDirectoryAdapter(peopleModule.Service()),
		IdP:       keycloak.New(cfg, nil),
		Publisher: identityPublisher,
		Outbox:    publicationOutbox,
		Alerts:    alerts,
		Access:    accessValidator,
		Locks:     locks,
		Log:       log,
	}, val)

	// Identity events the people listener keeps failing on go back to the outbox
	eventBus.SetDeadLetter(adapters.NewIdentityDeadLetter(accessControlModule.Service(), log).Receive)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			organizationModule,
			peopleModule,
			accessControlModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.IsKafkaEnabled() {
		consumer := kafka.NewConsumer(cfg.GetKafkaBrokers(), cfg.GetKafkaIdentityTopic(), cfg.GetKafkaGroupID(), log)
		g.Go(func() error {
			defer func() { _ = consumer.Close() }()
			return consumer.Run(gctx, peopleModule.Listener().HandleMessage)
		})
	}

	if cfg.GetRedisURL() != "" {
		if err := startPublicationRetry(gctx, g, cfg, publicationOutbox, accessControlModule.Service(), log); err != nil {
			log.Error("publication retry disabled", "error", err)
		}
	} else {
		log.Warn("REDIS_URL not configured; failed identity publications stay pending in the outbox")
	}

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := eventBus.Shutdown(drainCtx); err != nil {
		log.Warn("event bus did not drain", "error", err)
	}
	log.Info("server stopped")
}

func initLocker(cfg config.SchedulerConfig, log *logger.Logger) (locker.Locker, func()) {
	if cfg.GetRedisURL() == "" {
		log.Info("using in-process identity link locks")
		return locker.NewLocal(), func() {}
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; using in-process identity link locks", "error", err)
		return locker.NewLocal(), func() {}
	}
	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig.InsecureSkipVerify = true
	}
	client := redis.NewClient(opt)
	log.Info("using redis identity link locks")
	return locker.NewRedis(client, "hr:lock:", linkLockTTL), func() { _ = client.Close() }
}

func startPublicationRetry(ctx context.Context, g *errgroup.Group, cfg config.SchedulerConfig, repo *outbox.Repository, retrier scheduler.PublicationRetrier, log *logger.Logger) error {
	client, err := scheduler.NewClient(cfg)
	if err != nil {
		return err
	}
	worker, err := scheduler.NewWorker(cfg, retrier, log)
	if err != nil {
		_ = client.Close()
		return err
	}
	dispatcher := scheduler.NewPublicationOutboxDispatcher(repo, client, log)

	g.Go(func() error {
		defer func() { _ = client.Close() }()
		dispatcher.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return worker.Run(ctx)
	})
	log.Info("identity publication retry enabled")
	return nil
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
