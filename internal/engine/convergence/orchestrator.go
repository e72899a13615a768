// internal/engine/convergence/orchestrator.go
package convergence

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/common/logger"
	"listing-grader/internal/common/metrics"
	"listing-grader/internal/engine/exemplar"
	"listing-grader/internal/engine/pattern"
	"listing-grader/internal/engine/rules"
	"listing-grader/internal/engine/stats"
	"listing-grader/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	MinPasses                   = 1
	MaxPasses                   = 20
	DefaultMaxPasses            = 5
	DefaultConvergenceThreshold = 0.95
)

type ExemplarSelector interface {
	Select(ctx context.Context, corpus []models.Listing, policy exemplar.Policy, bestSellers []models.BestSellerRef, book *exemplar.Rulebook) (models.ExemplarSet, error)
}

type PatternExtractor interface {
	Extract(category string, exemplars []models.Listing) models.CategoryPatterns
}

type RuleGenerator interface {
	Generate(category string, exemplars []models.Exemplar, patterns models.CategoryPatterns, fallback models.StaticConfig) models.DynamicCategoryRules
}

// PassObserver is called after every completed pass with that pass's exemplar
// snapshot. It runs before the next pass starts; an error aborts the run.
type PassObserver func(ctx context.Context, pass int, snapshot models.ExemplarsArtifact) error

// Config bounds one convergence run.
type Config struct {
	Policy               exemplar.Policy
	MaxPasses            int
	ConvergenceThreshold float64
	Parallelism          int
	Fallback             models.StaticConfig
}

func DefaultConfig() Config {
	return Config{
		Policy:               exemplar.Policy{}.Normalized(),
		MaxPasses:            DefaultMaxPasses,
		ConvergenceThreshold: DefaultConvergenceThreshold,
		Parallelism:          runtime.NumCPU(),
		Fallback:             models.DefaultStaticConfig(),
	}
}

// Validate rejects settings that would make the loop meaningless.
func (c Config) Validate() error {
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if c.MaxPasses < MinPasses || c.MaxPasses > MaxPasses {
		return apperrors.NewConfigError(fmt.Sprintf("maxPasses must be between %d and %d, got %d", MinPasses, MaxPasses, c.MaxPasses))
	}
	if !(c.ConvergenceThreshold > 0 && c.ConvergenceThreshold <= 1) {
		return apperrors.NewConfigError(fmt.Sprintf("convergenceThreshold must be in (0, 1], got %g", c.ConvergenceThreshold))
	}
	return nil
}

// Orchestrator drives selection, extraction and rule generation until the
// exemplar identities stabilize or the pass budget runs out.
type Orchestrator struct {
	selector  ExemplarSelector
	extractor PatternExtractor
	generator RuleGenerator
	logger    logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newRunID  func() string
	observer  PassObserver
}

type Option func(*Orchestrator)

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func WithRunID(fn func() string) Option {
	return func(o *Orchestrator) {
		o.newRunID = fn
	}
}

func WithPassObserver(fn PassObserver) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

func NewOrchestrator(selector ExemplarSelector, extractor PatternExtractor, generator RuleGenerator, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		selector:  selector,
		extractor: extractor,
		generator: generator,
		logger:    logger.OrNop(log).WithFields(map[string]interface{}{"component": "convergence"}),
		tracer:    otel.Tracer("listing-grader/convergence"),
		now:       time.Now,
		newRunID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.extractor == nil {
		o.extractor = pattern.NewExtractor(pattern.DefaultConfig())
	}
	if o.generator == nil {
		o.generator = rules.NewGenerator(rules.WithClock(o.now))
	}
	return o
}

// Result is everything a run produces.
type Result struct {
	RunID        string
	State        models.ConvergenceState
	Outcome      models.RunOutcome
	Exemplars    models.ExemplarSet
	Patterns     map[string]models.CategoryPatterns
	Rules        map[string]models.DynamicCategoryRules
	Summary      models.ConvergenceSummary
	ExemplarsDoc models.ExemplarsArtifact
	GradingRules models.GradingRulesArtifact
	Vocabulary   models.VocabularySummary
	Playbook     models.Playbook
}

// passOutput is one pass's contribution, superseded by the next pass.
type passOutput struct {
	exemplars models.ExemplarSet
	patterns  map[string]models.CategoryPatterns
	rules     map[string]models.DynamicCategoryRules
	failed    []string
}

type categoryOutput struct {
	category string
	patterns models.CategoryPatterns
	rules    models.DynamicCategoryRules
	err      error
}

// Run executes passes until convergence or exhaustion. A cancelled context
// stops further passes and returns the last completed pass as exhausted; with
// no completed pass the context error is returned.
func (o *Orchestrator) Run(ctx context.Context, cfg Config, corpus []models.Listing, bestSellers []models.BestSellerRef) (*Result, error) {
	cfg.Policy = cfg.Policy.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}

	runID := o.newRunID()
	log := o.logger.WithFields(map[string]interface{}{"runId": runID})
	ctx, span := o.tracer.Start(ctx, "convergence.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("corpus.size", len(corpus)),
		attribute.Int("max_passes", cfg.MaxPasses),
		attribute.Float64("convergence.threshold", cfg.ConvergenceThreshold),
	))
	defer span.End()

	log.Info("starting convergence run", map[string]interface{}{
		"corpusSize":           len(corpus),
		"bestSellers":          len(bestSellers),
		"selectionCriteria":    cfg.Policy.Criteria(),
		"maxPasses":            cfg.MaxPasses,
		"convergenceThreshold": cfg.ConvergenceThreshold,
	})

	state := models.ConvergenceState{}
	book := exemplar.NewRulebook(cfg.Fallback, nil, nil)
	var last *passOutput
	var passResults []models.PassResult

	for pass := 1; pass <= cfg.MaxPasses; pass++ {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		out, err := o.runPass(ctx, cfg, pass, corpus, bestSellers, book, log)
		if err != nil {
			if isCancellation(err) && last != nil {
				log.Warn("run aborted, keeping last completed pass", map[string]interface{}{"pass": pass})
				break
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		ids := out.exemplars.Identities()
		state.PreviousExemplarIDs = state.ExemplarIDs
		state.ExemplarIDs = ids
		state.Pass = pass

		result := passResult(pass, out)
		if pass > 1 {
			metric := stats.Jaccard(state.PreviousExemplarIDs, ids)
			added, removed, unchanged := stats.SetDiff(state.PreviousExemplarIDs, ids)
			state.StabilityMetric = metric
			state.Converged = metric >= cfg.ConvergenceThreshold
			result.ExemplarChanges = &models.ExemplarChanges{Added: added, Removed: removed, Unchanged: unchanged}
			result.StabilityMetric = &metric
			metrics.GradingStabilityMetric.Set(metric)
		}
		passResults = append(passResults, result)
		last = out

		metrics.GradingPassesTotal.Inc()
		metrics.GradingPassDuration.Observe(time.Since(start).Seconds())
		metrics.GradingExemplarsSelected.Set(float64(out.exemplars.Total()))

		log.Info("pass completed", map[string]interface{}{
			"pass":            pass,
			"categories":      len(out.exemplars),
			"exemplars":       out.exemplars.Total(),
			"rules":           len(out.rules),
			"failed":          len(out.failed),
			"stabilityMetric": state.StabilityMetric,
			"converged":       state.Converged,
		})

		if o.observer != nil {
			snapshot := o.exemplarsArtifact(runID, cfg, pass, corpus, bestSellers, out)
			if err := o.observer(ctx, pass, snapshot); err != nil {
				span.RecordError(err)
				return nil, err
			}
		}

		if state.Converged {
			break
		}
		book = exemplar.NewRulebook(cfg.Fallback, rulePointers(out.rules), vocabularies(out.patterns))
	}

	if last == nil {
		// only reachable through cancellation before the first pass finished
		return nil, ctx.Err()
	}

	outcome := models.OutcomeExhausted
	if state.Converged {
		outcome = models.OutcomeConverged
	}
	metrics.GradingRunsTotal.WithLabelValues(string(outcome)).Inc()
	span.SetAttributes(
		attribute.Int("passes", state.Pass),
		attribute.String("outcome", string(outcome)),
		attribute.Float64("stability", state.StabilityMetric),
	)

	res := &Result{
		RunID:     runID,
		State:     state,
		Outcome:   outcome,
		Exemplars: last.exemplars,
		Patterns:  last.patterns,
		Rules:     last.rules,
		Summary: models.ConvergenceSummary{
			RunID:                runID,
			Passes:               state.Pass,
			Converged:            state.Converged,
			Outcome:              outcome,
			ConvergenceMetric:    state.StabilityMetric,
			ConvergenceThreshold: cfg.ConvergenceThreshold,
			PassResults:          passResults,
		},
		ExemplarsDoc: o.exemplarsArtifact(runID, cfg, state.Pass, corpus, bestSellers, last),
		GradingRules: o.gradingRulesArtifact(runID, cfg, bestSellers, last),
	}

	// Derived artifacts are built once, from the last pass only.
	res.Vocabulary = BuildVocabulary(runID, last.patterns)
	res.Playbook = BuildPlaybook(runID, last.exemplars, last.rules)

	log.Info("convergence run finished", map[string]interface{}{
		"passes":          state.Pass,
		"outcome":         string(outcome),
		"stabilityMetric": state.StabilityMetric,
	})
	return res, nil
}

func (o *Orchestrator) runPass(ctx context.Context, cfg Config, pass int, corpus []models.Listing, bestSellers []models.BestSellerRef, book *exemplar.Rulebook, log logger.Logger) (*passOutput, error) {
	ctx, span := o.tracer.Start(ctx, "convergence.pass", trace.WithAttributes(attribute.Int("pass", pass)))
	defer span.End()

	set, err := o.selector.Select(ctx, corpus, cfg.Policy, bestSellers, book)
	if err != nil {
		return nil, err
	}

	categories := exemplar.SortedCategories(set)
	outputs := make([]categoryOutput, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallelism)
	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outputs[i] = o.processCategory(category, pass, set[category], cfg.Fallback)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &passOutput{
		exemplars: set,
		patterns:  make(map[string]models.CategoryPatterns, len(categories)),
		rules:     make(map[string]models.DynamicCategoryRules, len(categories)),
	}
	for _, co := range outputs {
		if co.err != nil {
			out.failed = append(out.failed, co.category)
			metrics.GradingCategoryFailures.WithLabelValues(co.category).Inc()
			log.WithError(co.err).Error("category skipped for this pass", map[string]interface{}{
				"pass":     pass,
				"category": co.category,
			})
			// a skipped category contributes no exemplars to this pass
			delete(out.exemplars, co.category)
			continue
		}
		out.patterns[co.category] = co.patterns
		out.rules[co.category] = co.rules
	}
	span.SetAttributes(
		attribute.Int("categories", len(categories)),
		attribute.Int("failed", len(out.failed)),
	)
	return out, nil
}

// processCategory never lets one category's failure escape into the pass.
func (o *Orchestrator) processCategory(category string, pass int, exemplars []models.Exemplar, fallback models.StaticConfig) (out categoryOutput) {
	out.category = category
	defer func() {
		if r := recover(); r != nil {
			out.err = apperrors.NewCategoryProcessingError(category, pass, fmt.Errorf("panic: %v", r))
		}
	}()

	listings := make([]models.Listing, len(exemplars))
	for i, e := range exemplars {
		listings[i] = e.Listing
	}
	out.patterns = o.extractor.Extract(category, listings)
	out.rules = o.generator.Generate(category, exemplars, out.patterns, fallback)
	return out
}

func passResult(pass int, out *passOutput) models.PassResult {
	return models.PassResult{
		Pass:          pass,
		ExemplarStats: exemplarStats(out.exemplars),
		GradingRulesStats: models.GradingRulesStats{
			TotalCategories:        len(out.rules),
			FailedCategories:       out.failed,
			ConfidenceDistribution: confidenceDistribution(out.rules),
		},
	}
}

func exemplarStats(set models.ExemplarSet) models.ExemplarStats {
	var scores []float64
	for _, category := range exemplar.SortedCategories(set) {
		for _, e := range set[category] {
			scores = append(scores, e.Score)
		}
	}
	return models.ExemplarStats{
		TotalCategories:  len(set),
		TotalExemplars:   set.Total(),
		TotalBestSellers: set.BestSellerTotal(),
		AverageScore:     stats.Round(stats.Mean(scores), 2),
	}
}

func confidenceDistribution(rs map[string]models.DynamicCategoryRules) models.ConfidenceDistribution {
	var d models.ConfidenceDistribution
	for _, r := range rs {
		switch r.Confidence.Level {
		case models.ConfidenceHigh:
			d.High++
		case models.ConfidenceMedium:
			d.Medium++
		default:
			d.Low++
		}
	}
	return d
}

func (o *Orchestrator) exemplarsArtifact(runID string, cfg Config, pass int, corpus []models.Listing, bestSellers []models.BestSellerRef, out *passOutput) models.ExemplarsArtifact {
	listings := make(map[string][]models.Listing, len(out.exemplars))
	for category, es := range out.exemplars {
		ls := make([]models.Listing, len(es))
		for i, e := range es {
			ls[i] = e.Listing
		}
		listings[category] = ls
	}
	return models.ExemplarsArtifact{
		Exemplars: listings,
		Patterns:  out.patterns,
		Metadata: models.ExemplarsMetadata{
			RunID:               runID,
			CorpusSize:          len(corpus),
			BestSellersProvided: len(bestSellers),
			TopN:                cfg.Policy.TopN,
			TopPercent:          cfg.Policy.TopPercent,
			SelectionCriteria:   cfg.Policy.Criteria(),
			Pass:                pass,
			Stats:               exemplarStats(out.exemplars),
		},
	}
}

func (o *Orchestrator) gradingRulesArtifact(runID string, cfg Config, bestSellers []models.BestSellerRef, out *passOutput) models.GradingRulesArtifact {
	return models.GradingRulesArtifact{
		Rules: out.rules,
		Metadata: models.GradingRulesMetadata{
			RunID:                  runID,
			GeneratedAt:            o.now().UTC(),
			TotalCategories:        len(out.rules),
			TotalExemplars:         out.exemplars.Total(),
			BestSellersCount:       len(bestSellers),
			ConfidenceDistribution: confidenceDistribution(out.rules),
		},
		FallbackRules: cfg.Fallback.Clone(),
	}
}

func rulePointers(rs map[string]models.DynamicCategoryRules) map[string]*models.DynamicCategoryRules {
	out := make(map[string]*models.DynamicCategoryRules, len(rs))
	for category, r := range rs {
		r := r
		out[category] = &r
	}
	return out
}

func vocabularies(ps map[string]models.CategoryPatterns) map[string][]string {
	out := make(map[string][]string, len(ps))
	for category, p := range ps {
		out[category] = p.VocabularyTerms()
	}
	return out
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// FailedCategories lists the categories skipped in the final pass.
func (r *Result) FailedCategories() []string {
	if r == nil || len(r.Summary.PassResults) == 0 {
		return nil
	}
	failed := append([]string(nil), r.Summary.PassResults[len(r.Summary.PassResults)-1].GradingRulesStats.FailedCategories...)
	sort.Strings(failed)
	return failed
}
