// internal/workers/grading/derive-grading-rules/config.go
package derivegradingrules

import (
	"time"

	"listing-grader/internal/common/config"
	"listing-grader/internal/models"
)

type Config struct {
	Timeout         time.Duration
	SupportRatio    float64
	IgnoreStopWords bool
	Fallback        models.StaticConfig
}

func LoadConfig(app *config.Config) *Config {
	wc := config.GetWorkerConfig(app, TaskType)
	return &Config{
		Timeout:         time.Duration(wc.Timeout) * time.Millisecond,
		SupportRatio:    app.Engine.SupportRatio,
		IgnoreStopWords: app.Engine.IgnoreStopWords,
		Fallback:        app.Engine.Fallback,
	}
}
