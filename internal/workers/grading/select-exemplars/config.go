// internal/workers/grading/select-exemplars/config.go
package selectexemplars

import (
	"time"

	"listing-grader/internal/common/config"
	"listing-grader/internal/models"
)

type Config struct {
	Timeout  time.Duration
	TopN     int
	Percent  float64
	Fallback models.StaticConfig
}

func LoadConfig(app *config.Config) *Config {
	wc := config.GetWorkerConfig(app, TaskType)
	return &Config{
		Timeout:  time.Duration(wc.Timeout) * time.Millisecond,
		TopN:     app.Engine.TopN,
		Percent:  app.Engine.TopPercent,
		Fallback: app.Engine.Fallback,
	}
}
