// internal/runner/runner.go
package runner

import (
	"context"
	"time"

	"listing-grader/internal/artifacts"
	"listing-grader/internal/common/config"
	"listing-grader/internal/common/logger"
	"listing-grader/internal/corpus"
	"listing-grader/internal/engine/convergence"
	"listing-grader/internal/engine/exemplar"
	"listing-grader/internal/engine/grader"
	"listing-grader/internal/engine/pattern"
	"listing-grader/internal/engine/quality"
	"listing-grader/internal/engine/rules"
	"listing-grader/internal/models"

	"go.opentelemetry.io/otel/trace"
)

// Overrides replace engine settings for a single run. A policy override
// replaces both topN and topPercent.
type Overrides struct {
	TopN                 *int     `json:"topN,omitempty"`
	TopPercent           *float64 `json:"topPercent,omitempty"`
	MaxPasses            *int     `json:"maxPasses,omitempty"`
	ConvergenceThreshold *float64 `json:"convergenceThreshold,omitempty"`
}

// Report is the outcome of a full load, converge and publish cycle.
type Report struct {
	Corpus      *corpus.Corpus
	Result      *convergence.Result
	Publication *artifacts.Publication
}

// Runner wires a corpus loader, the convergence engine and a publisher.
type Runner struct {
	engine    config.EngineConfig
	loader    corpus.Loader
	publisher *artifacts.Publisher
	tracer    trace.Tracer
	now       func() time.Time
	runID     func() string
	observers []convergence.PassObserver
	logger    logger.Logger
}

type Option func(*Runner)

func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func WithRunID(fn func() string) Option {
	return func(r *Runner) { r.runID = fn }
}

// WithPassObserver adds an observer called after every pass. Observers run
// after the pass snapshot is written, in the order they were added.
func WithPassObserver(fn convergence.PassObserver) Option {
	return func(r *Runner) { r.observers = append(r.observers, fn) }
}

// New builds a runner. publisher may be nil, in which case nothing is written.
func New(engine config.EngineConfig, loader corpus.Loader, publisher *artifacts.Publisher, log logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		engine:    engine,
		loader:    loader,
		publisher: publisher,
		logger:    logger.OrNop(log).WithFields(map[string]interface{}{"component": "runner"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config merges the engine section with per-run overrides.
func (r *Runner) Config(o Overrides) (convergence.Config, error) {
	cfg := convergence.DefaultConfig()
	cfg.Policy = exemplar.PolicyFrom(r.engine.TopN, r.engine.TopPercent)
	if o.TopN != nil || o.TopPercent != nil {
		cfg.Policy = exemplar.Policy{TopN: o.TopN, TopPercent: o.TopPercent}
	}
	cfg.Policy = cfg.Policy.Normalized()

	if r.engine.MaxPasses > 0 {
		cfg.MaxPasses = r.engine.MaxPasses
	}
	if o.MaxPasses != nil {
		cfg.MaxPasses = *o.MaxPasses
	}
	if r.engine.ConvergenceThreshold > 0 {
		cfg.ConvergenceThreshold = r.engine.ConvergenceThreshold
	}
	if o.ConvergenceThreshold != nil {
		cfg.ConvergenceThreshold = *o.ConvergenceThreshold
	}
	if r.engine.Parallelism > 0 {
		cfg.Parallelism = r.engine.Parallelism
	}
	if r.engine.Fallback.Weights != (models.Weights{}) {
		cfg.Fallback = r.engine.Fallback.Clone()
	}
	return cfg, cfg.Validate()
}

// Orchestrator builds the engine for one run.
func (r *Runner) Orchestrator() *convergence.Orchestrator {
	var opts []convergence.Option
	if r.tracer != nil {
		opts = append(opts, convergence.WithTracer(r.tracer))
	}
	if r.now != nil {
		opts = append(opts, convergence.WithClock(r.now))
	}
	if r.runID != nil {
		opts = append(opts, convergence.WithRunID(r.runID))
	}
	var observers []convergence.PassObserver
	if r.publisher != nil && r.engine.PassSnapshots {
		observers = append(observers, r.publisher.SnapshotObserver())
	}
	observers = append(observers, r.observers...)
	if len(observers) > 0 {
		opts = append(opts, convergence.WithPassObserver(chain(observers)))
	}

	return convergence.NewOrchestrator(
		exemplar.NewSelector(r.scorer(), r.logger),
		pattern.NewExtractor(pattern.Config{
			IgnoreStopWords: r.engine.IgnoreStopWords,
			SupportRatio:    r.engine.SupportRatio,
		}),
		rules.NewGenerator(r.generatorOptions()...),
		r.logger,
		opts...,
	)
}

// scorer grades freshness against the run clock so a fixed clock gives a
// fixed ranking.
func (r *Runner) scorer() *quality.Scorer {
	if r.now == nil {
		return quality.NewScorer(nil)
	}
	return quality.NewScorer(grader.NewStatic(grader.WithClock(r.now)))
}

func (r *Runner) generatorOptions() []rules.Option {
	if r.now == nil {
		return nil
	}
	return []rules.Option{rules.WithClock(r.now)}
}

func chain(observers []convergence.PassObserver) convergence.PassObserver {
	if len(observers) == 1 {
		return observers[0]
	}
	return func(ctx context.Context, pass int, snapshot models.ExemplarsArtifact) error {
		for _, fn := range observers {
			if err := fn(ctx, pass, snapshot); err != nil {
				return err
			}
		}
		return nil
	}
}

// Run loads the corpus, converges and publishes.
func (r *Runner) Run(ctx context.Context, o Overrides) (*Report, error) {
	cfg, err := r.Config(o)
	if err != nil {
		return nil, err
	}

	c, err := r.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Info("corpus ready", map[string]interface{}{
		"source":      c.Source,
		"listings":    len(c.Listings),
		"bestSellers": len(c.BestSellers),
		"skipped":     c.Skipped,
	})

	res, err := r.Orchestrator().Run(ctx, cfg, c.Listings, c.BestSellers)
	if err != nil {
		return nil, err
	}

	report := &Report{Corpus: c, Result: res}
	if r.publisher == nil {
		return report, nil
	}
	pub, err := r.publisher.Publish(ctx, res)
	report.Publication = pub
	if err != nil {
		return report, err
	}
	return report, nil
}
