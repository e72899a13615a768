// internal/bootstrap/bootstrap.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listing-grader/internal/artifacts"
	"listing-grader/internal/common/config"
	"listing-grader/internal/common/database"
	"listing-grader/internal/common/logger"
	"listing-grader/internal/common/observability"
	"listing-grader/internal/corpus"
	"listing-grader/internal/models"
	"listing-grader/internal/runner"
)

// Services holds the backends and the runner shared by the worker manager
// and the grader CLI. Clients are only opened when the config needs them.
type Services struct {
	Config        *config.Config
	Postgres      *database.PostgresClient
	Elasticsearch *database.ElasticsearchClient
	Redis         *database.RedisClient
	Loader        corpus.Loader
	Publisher     *artifacts.Publisher
	Runner        *runner.Runner

	logger logger.Logger
}

// Options tune connection retries. When Observability is set the runner
// traces through it and records every convergence pass.
type Options struct {
	ConnectAttempts int
	InitialDelay    time.Duration
	Observability   *observability.Observability
	RunnerOptions   []runner.Option
}

func (o Options) withDefaults() Options {
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = 5
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 2 * time.Second
	}
	return o
}

// New connects the backends named by cfg and wires loader, publisher and
// runner. On error every opened client is closed.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*Services, error) {
	opts = opts.withDefaults()
	log = logger.OrNop(log)
	s := &Services{Config: cfg, logger: log}

	if err := s.connect(ctx, opts); err != nil {
		s.Close()
		return nil, err
	}

	loader, err := corpus.NewLoader(cfg.Corpus, corpus.Backends{
		Postgres:      s.Postgres,
		Elasticsearch: s.Elasticsearch,
	}, log)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Loader = loader

	writer, err := artifacts.NewWriter(cfg.Artifacts, artifacts.Backends{
		Redis:         s.Redis,
		Elasticsearch: s.Elasticsearch,
		Postgres:      s.Postgres,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	notifier, err := artifacts.NewNotifierFromConfig(ctx, cfg.Notifications, log)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Publisher = artifacts.NewPublisher(writer, notifier, log)
	s.Runner = runner.New(cfg.Engine, s.Loader, s.Publisher, log, runnerOptions(opts)...)

	log.Info("services ready", map[string]interface{}{
		"corpusSource": cfg.Corpus.Source,
		"sinks":        cfg.Artifacts.Sinks,
		"notify":       notifier.Enabled(),
	})
	return s, nil
}

func runnerOptions(opts Options) []runner.Option {
	obs := opts.Observability
	if obs == nil {
		return opts.RunnerOptions
	}
	return append([]runner.Option{
		runner.WithTracer(obs.Tracer()),
		runner.WithPassObserver(func(ctx context.Context, pass int, snapshot models.ExemplarsArtifact) error {
			obs.RecordPass(ctx, pass, len(snapshot.Exemplars))
			return nil
		}),
	}, opts.RunnerOptions...)
}

func (s *Services) connect(ctx context.Context, opts Options) error {
	cfg := s.Config

	if cfg.Corpus.Source == config.SourcePostgres || cfg.Artifacts.HasSink(config.SinkPostgres) {
		err := RetryWithBackoff(ctx, func() error {
			pg, err := database.NewPostgres(ctx, cfg.Database.Postgres)
			if err != nil {
				return err
			}
			s.Postgres = pg
			return nil
		}, opts.ConnectAttempts, opts.InitialDelay, s.logger, "PostgreSQL connection")
		if err != nil {
			return err
		}
	}

	if cfg.Corpus.Source == config.SourceElasticsearch || cfg.Artifacts.HasSink(config.SinkElasticsearch) {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		if err := RetryWithBackoff(ctx, func() error { return es.Ping(ctx) },
			opts.ConnectAttempts, opts.InitialDelay, s.logger, "Elasticsearch connection"); err != nil {
			return err
		}
		s.Elasticsearch = es
	}

	if cfg.Artifacts.HasSink(config.SinkRedis) {
		rdb := database.NewRedis(cfg.Database.Redis)
		if err := RetryWithBackoff(ctx, func() error { return rdb.Ping(ctx) },
			opts.ConnectAttempts, opts.InitialDelay, s.logger, "Redis connection"); err != nil {
			rdb.Close()
			return err
		}
		s.Redis = rdb
	}
	return nil
}

// Ready pings every opened backend.
func (s *Services) Ready(ctx context.Context) error {
	var errs []error
	if s.Postgres != nil {
		errs = append(errs, s.Postgres.Ping(ctx))
	}
	if s.Elasticsearch != nil {
		errs = append(errs, s.Elasticsearch.Ping(ctx))
	}
	if s.Redis != nil {
		errs = append(errs, s.Redis.Ping(ctx))
	}
	return errors.Join(errs...)
}

// Close releases every opened backend.
func (s *Services) Close() {
	if s.Postgres != nil {
		if err := s.Postgres.Close(); err != nil {
			s.logger.Warn("closing postgres", map[string]interface{}{"error": err.Error()})
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.logger.Warn("closing redis", map[string]interface{}{"error": err.Error()})
		}
	}
}

// RetryWithBackoff runs operation until it succeeds, doubling the delay
// after each failure.
func RetryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s cancelled after %d attempts: %w", operationName, i+1, ctx.Err())
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
