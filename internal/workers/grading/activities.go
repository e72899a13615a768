// internal/workers/grading/activities.go
package grading

import (
	"time"

	"listing-grader/internal/common/config"
	apperrors "listing-grader/internal/common/errors"
	"listing-grader/pkg/registry"

	dgr "listing-grader/internal/workers/grading/derive-grading-rules"
	rc "listing-grader/internal/workers/grading/run-convergence"
	se "listing-grader/internal/workers/grading/select-exemplars"
)

const RegistryVersion = "1.0.0"

func object(props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": props}
}

func typed(t string) map[string]interface{} {
	return map[string]interface{}{"type": t}
}

// Activities describes the grading workers with the timeouts and retries
// cfg assigns them.
func Activities(cfg *config.Config) *registry.ActivityRegistry {
	activity := func(taskType, name, description string, in, out map[string]interface{}, codes ...apperrors.ErrorCode) registry.Activity {
		wc := config.GetWorkerConfig(cfg, taskType)
		errorCodes := make([]string, 0, len(codes)+1)
		for _, c := range codes {
			errorCodes = append(errorCodes, string(c))
		}
		errorCodes = append(errorCodes, string(apperrors.ErrCodeTimeout))
		return registry.Activity{
			ID:                   taskType,
			DisplayName:          name,
			Description:          description,
			Category:             "grading",
			Version:              RegistryVersion,
			TaskType:             taskType,
			ImplementationStatus: "completed",
			InputSchema:          object(in),
			OutputSchema:         object(out),
			ErrorCodes:           errorCodes,
			Timeout:              config.GetDuration(wc.Timeout).String(),
			Retries:              wc.MaxRetries,
		}
	}

	return &registry.ActivityRegistry{
		Version:     RegistryVersion,
		LastUpdated: time.Now().UTC().Format("2006-01-02"),
		Activities: []registry.Activity{
			activity(se.TaskType, "Select Exemplars",
				"Scores a listing corpus and picks the top listings per category.",
				map[string]interface{}{
					"listings":    typed("array"),
					"bestSellers": typed("array"),
					"topN":        typed("integer"),
					"topPercent":  typed("number"),
					"rules":       typed("object"),
				},
				map[string]interface{}{
					"exemplars":         typed("object"),
					"stats":             typed("object"),
					"selectionCriteria": typed("string"),
				},
				apperrors.ErrCodeEmptyCorpus, apperrors.ErrCodeConfig, apperrors.ErrCodeCorpusLoadFailed,
			),
			activity(dgr.TaskType, "Derive Grading Rules",
				"Mines exemplar patterns and generates per-category grading rules.",
				map[string]interface{}{
					"exemplars":  typed("object"),
					"categories": typed("array"),
					"fallback":   typed("object"),
				},
				map[string]interface{}{
					"patterns":         typed("object"),
					"rules":            typed("object"),
					"vocabulary":       typed("object"),
					"failedCategories": typed("array"),
				},
				apperrors.ErrCodeEmptyCorpus, apperrors.ErrCodeBusinessRule, apperrors.ErrCodeCategoryProcessingFailed,
			),
			activity(rc.TaskType, "Run Grading Convergence",
				"Loads the configured corpus, iterates until the exemplar set is stable and publishes the artifacts.",
				map[string]interface{}{
					"topN":                 typed("integer"),
					"topPercent":           typed("number"),
					"maxPasses":            typed("integer"),
					"convergenceThreshold": typed("number"),
				},
				map[string]interface{}{
					"runId":             typed("string"),
					"outcome":           typed("string"),
					"passes":            typed("integer"),
					"convergenceMetric": typed("number"),
					"artifacts":         typed("array"),
				},
				apperrors.ErrCodeEmptyCorpus, apperrors.ErrCodeConfig, apperrors.ErrCodeArtifactWriteFailed,
			),
		},
	}
}
