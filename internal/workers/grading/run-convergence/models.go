// internal/workers/grading/run-convergence/models.go
package runconvergence

import (
	"listing-grader/internal/models"
	"listing-grader/internal/runner"
)

type Input struct {
	runner.Overrides
}

type Output struct {
	RunID             string            `json:"runId"`
	Outcome           models.RunOutcome `json:"outcome"`
	Passes            int               `json:"passes"`
	ConvergenceMetric float64           `json:"convergenceMetric"`
	Categories        int               `json:"categories"`
	Exemplars         int               `json:"exemplars"`
	FailedCategories  []string          `json:"failedCategories,omitempty"`
	Artifacts         []string          `json:"artifacts,omitempty"`
	Notified          bool              `json:"notified"`
}
