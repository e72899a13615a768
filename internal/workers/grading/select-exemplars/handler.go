// internal/workers/grading/select-exemplars/handler.go
package selectexemplars

import (
	"context"
	"encoding/json"
	"math"
	"time"

	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/common/logger"
	"listing-grader/internal/common/metrics"
	"listing-grader/internal/corpus"
	"listing-grader/internal/engine/exemplar"
	"listing-grader/internal/engine/quality"
	"listing-grader/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "select-exemplars"

type Handler struct {
	config     *Config
	selector   *exemplar.Selector
	loader     corpus.Loader
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

// NewHandler builds the worker. loader may be nil when every job carries its corpus.
func NewHandler(config *Config, loader corpus.Loader, log logger.Logger) *Handler {
	log = logger.OrNop(log).WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		selector:   exemplar.NewSelector(quality.NewScorer(nil), log),
		loader:     loader,
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
	policy := exemplar.PolicyFrom(h.config.TopN, h.config.Percent)
	if input.TopN != nil || input.TopPercent != nil {
		policy = exemplar.Policy{TopN: input.TopN, TopPercent: input.TopPercent}
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	policy = policy.Normalized()

	listings, bestSellers := input.Listings, input.BestSellers
	if len(listings) == 0 && h.loader != nil {
		c, err := h.loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		listings = c.Listings
		if len(bestSellers) == 0 {
			bestSellers = c.BestSellers
		}
	}

	var rules map[string]*models.DynamicCategoryRules
	if len(input.Rules) > 0 {
		rules = make(map[string]*models.DynamicCategoryRules, len(input.Rules))
		for category := range input.Rules {
			r := input.Rules[category]
			rules[category] = &r
		}
	}
	book := exemplar.NewRulebook(h.config.Fallback, rules, input.Vocabulary)

	set, err := h.selector.Select(ctx, listings, policy, bestSellers, book)
	if err != nil {
		return nil, err
	}

	h.logger.Info("exemplars selected", map[string]interface{}{
		"categories": len(set),
		"exemplars":  set.Total(),
	})

	return &Output{
		Exemplars:         set,
		Stats:             stats(set),
		SelectionCriteria: policy.Criteria(),
	}, nil
}

func stats(set models.ExemplarSet) models.ExemplarStats {
	var sum float64
	total := 0
	for _, category := range exemplar.SortedCategories(set) {
		for _, e := range set[category] {
			sum += e.Score
			total++
		}
	}
	s := models.ExemplarStats{
		TotalCategories:  len(set),
		TotalExemplars:   total,
		TotalBestSellers: set.BestSellerTotal(),
	}
	if total > 0 {
		s.AverageScore = math.Round(sum/float64(total)*100) / 100
	}
	return s
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
