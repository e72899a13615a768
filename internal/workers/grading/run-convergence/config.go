// internal/workers/grading/run-convergence/config.go
package runconvergence

import (
	"time"

	"listing-grader/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(app *config.Config) *Config {
	wc := config.GetWorkerConfig(app, TaskType)
	return &Config{Timeout: time.Duration(wc.Timeout) * time.Millisecond}
}
