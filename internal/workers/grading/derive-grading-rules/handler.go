// internal/workers/grading/derive-grading-rules/handler.go
package derivegradingrules

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/common/logger"
	"listing-grader/internal/common/metrics"
	"listing-grader/internal/engine/exemplar"
	"listing-grader/internal/engine/pattern"
	"listing-grader/internal/engine/rules"
	"listing-grader/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "derive-grading-rules"

type Handler struct {
	config     *Config
	extractor  *pattern.Extractor
	generator  *rules.Generator
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger, opts ...rules.Option) *Handler {
	log = logger.OrNop(log).WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		extractor: pattern.NewExtractor(pattern.Config{
			IgnoreStopWords: config.IgnoreStopWords,
			SupportRatio:    config.SupportRatio,
		}),
		generator:  rules.NewGenerator(opts...),
		logger:     log,
		errHandler: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewBusinessRuleError("invalid job variables", err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Exemplars.Total() == 0 {
		return nil, apperrors.NewEmptyCorpusError("no exemplars to derive rules from")
	}

	fallback := h.config.Fallback
	if input.Fallback != nil {
		fallback = *input.Fallback
	}

	categories := input.Categories
	if len(categories) == 0 {
		categories = exemplar.SortedCategories(input.Exemplars)
	}

	out := &Output{
		Patterns:   make(map[string]models.CategoryPatterns, len(categories)),
		Rules:      make(map[string]models.DynamicCategoryRules, len(categories)),
		Vocabulary: make(map[string][]string, len(categories)),
	}
	for _, category := range categories {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewTimeoutError(TaskType, err)
		}
		exemplars, ok := input.Exemplars[category]
		if !ok || len(exemplars) == 0 {
			out.FailedCategories = append(out.FailedCategories, category)
			h.logger.Warn("category has no exemplars", map[string]interface{}{"category": category})
			continue
		}

		patterns, categoryRules, err := h.derive(category, exemplars, fallback)
		if err != nil {
			out.FailedCategories = append(out.FailedCategories, category)
			h.logger.Error("category rule derivation failed", map[string]interface{}{
				"category": category,
				"error":    err.Error(),
			})
			continue
		}
		out.Patterns[category] = patterns
		out.Rules[category] = categoryRules
		out.Vocabulary[category] = patterns.VocabularyTerms()
	}

	if len(out.Rules) == 0 {
		return nil, apperrors.NewBusinessRuleError("no category produced rules", fmt.Sprintf("%d categories failed", len(out.FailedCategories)))
	}
	return out, nil
}

func (h *Handler) derive(category string, exemplars []models.Exemplar, fallback models.StaticConfig) (patterns models.CategoryPatterns, categoryRules models.DynamicCategoryRules, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewCategoryProcessingError(category, 0, fmt.Errorf("panic: %v", r))
		}
	}()

	listings := make([]models.Listing, len(exemplars))
	for i, e := range exemplars {
		listings[i] = e.Listing
	}
	patterns = h.extractor.Extract(category, listings)
	categoryRules = h.generator.Generate(category, exemplars, patterns, fallback)
	return patterns, categoryRules, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
