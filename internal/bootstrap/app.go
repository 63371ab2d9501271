// Package bootstrap wires configuration into the adapters and use cases
// shared by riskd and riskctl.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/thenielthevis/capstone-project-sub006/internal/application/usecase"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/port"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/clock"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/config"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/guard"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/inference"
	infrakafka "github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/kafka"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/llm"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/metrics"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/postgres"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/worker"
	"github.com/thenielthevis/capstone-project-sub006/migrations"
	"github.com/thenielthevis/capstone-project-sub006/pkg/kafka"
	"github.com/thenielthevis/capstone-project-sub006/pkg/observability"
	pgutil "github.com/thenielthevis/capstone-project-sub006/pkg/postgres"
)

// meterName scopes the engine's instruments.
const meterName = "github.com/thenielthevis/capstone-project-sub006"

// App holds the wired engine. Close releases everything in reverse order.
type App struct {
	Pool           *pgxpool.Pool
	Redis          *redis.Client
	Predictions    *usecase.GetOrCreatePrediction
	Enrichment     *usecase.EnrichDescriptions
	Queue          *worker.Queue
	MetricsHandler http.Handler

	logger  *slog.Logger
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func(ctx context.Context) error
}

// Build connects to every configured dependency and assembles the use cases.
// On failure whatever was already opened is closed.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *App, err error) {
	app := &App{logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	vocab, err := config.LoadVocabulary(cfg.LabelsFile, cfg.Enrichment.Placeholders)
	if err != nil {
		return nil, err
	}
	clk := clock.NewSystem(loc)

	// Metrics.
	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Namespace:   "healthrisk",
	})
	if err != nil {
		return nil, err
	}
	app.MetricsHandler = metricsHandler
	app.onClose("meter provider", meterProvider.Shutdown)

	recorder, err := metrics.NewRecorder(meterProvider.Meter(meterName))
	if err != nil {
		return nil, err
	}

	// Database.
	if cfg.DB.MigrateOnStart {
		if err := pgutil.RunMigrations(cfg.DB.URL, migrations.FS); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("database migrations applied")
	}
	dbCfg := pgutil.Config{
		URL:             cfg.DB.URL,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
	}
	pool, err := pgutil.NewPool(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", dbCfg.Redacted(), err)
	}
	app.Pool = pool
	app.onClose("database", func(context.Context) error {
		pool.Close()
		return nil
	})
	logger.Info("connected to database")
	store := postgres.NewUserPredictionRepository(pool)

	// Events.
	var publisher port.EventPublisher
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(kafka.Config{
			Brokers:       cfg.Kafka.Brokers,
			SASLMechanism: cfg.Kafka.SASLMechanism,
			SASLUsername:  cfg.Kafka.SASLUsername,
			SASLPassword:  cfg.Kafka.SASLPassword,
			SASLEnabled:   cfg.Kafka.SASLUsername != "",
			WriteTimeout:  cfg.Kafka.WriteTimeout,
			TLS:           cfg.Kafka.TLS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka producer: %w", err)
		}
		app.onClose("kafka producer", func(context.Context) error { return producer.Close() })
		publisher = infrakafka.NewPublisher(producer, cfg.Kafka.Topic, logger)
		logger.Info("publishing events", "topic", cfg.Kafka.Topic)
	} else {
		logger.Info("KAFKA_BROKERS not set, domain events are not published")
	}

	// Description generator.
	var generator port.DescriptionGenerator = llm.NopGenerator{}
	if cfg.LLM.APIKey != "" {
		g, err := llm.NewAnthropicGenerator(cfg.LLM.APIKey,
			llm.WithModel(cfg.LLM.Model),
			llm.WithBaseURL(cfg.LLM.BaseURL),
			llm.WithMaxTokens(cfg.LLM.MaxTokens),
			llm.WithMaxRetries(cfg.LLM.MaxRetries),
		)
		if err != nil {
			return nil, err
		}
		generator = g
		logger.Info("description enrichment enabled", "model", g.Model())
	} else {
		logger.Info("ANTHROPIC_API_KEY not set, descriptions are not generated")
	}

	// Background enrichment.
	app.Enrichment = usecase.NewEnrichDescriptions(store, generator, publisher, clk, recorder, logger,
		vocab.Placeholders, cfg.Enrichment.Timeout)
	app.Queue = worker.NewQueue(app.Enrichment.Handle, worker.Config{
		Workers: cfg.Enrichment.Workers,
		Size:    cfg.Enrichment.QueueSize,
		OnDrop: func(port.EnrichmentTask) {
			recorder.EnrichmentFinished(context.Background(), usecase.EnrichmentDropped)
		},
	}, logger)
	app.onClose("enrichment queue", app.Queue.Close)
	if err := recorder.RegisterQueueDepth(app.Queue.Depth); err != nil {
		return nil, err
	}

	// Per-user compute guard.
	var locker guard.Locker
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.Redis = client
		app.onClose("redis", func(context.Context) error { return client.Close() })
		locker = guard.NewRedisLocker(client, guard.RedisLockerConfig{
			TTL:  cfg.Redis.LockTTL,
			Wait: cfg.Redis.LockWait,
		}, logger)
		logger.Info("cross-instance compute lock enabled", "redis", cfg.Redis.Addr)
	}

	app.Predictions = usecase.NewGetOrCreatePrediction(usecase.GetOrCreatePredictionDeps{
		Store: store,
		Inference: inference.NewProcessClient(inference.Config{
			Command: cfg.Inference.Command,
			Args:    cfg.Inference.Args,
			WorkDir: cfg.Inference.WorkDir,
			Timeout: cfg.Inference.Timeout,
		}, nil, logger),
		Clock:        clk,
		Publisher:    publisher,
		Guard:        guard.New(locker, logger),
		Scheduler:    app.Queue,
		Metrics:      recorder,
		Labels:       vocab.Labels,
		Logger:       logger,
		Placeholders: vocab.Placeholders,
	})

	return app, nil
}

func (a *App) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// Close drains the enrichment queue and closes connections, last opened
// first. ctx bounds the queue drain.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(ctx); err != nil {
			a.logger.Error("shutdown step failed", "step", c.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
